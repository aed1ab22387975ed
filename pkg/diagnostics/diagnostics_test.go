package diagnostics

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	var messages []ectologger.EctoLogMessage
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		messages = append(messages, msg)
	})
	r := NewRecorder(logger)
	ctx := context.Background()

	r.Warn(ctx, Event{Stage: "merge", Kind: ConversionFailure, Message: "3 failed", Count: 3})
	r.Warn(ctx, Event{Stage: "load", Kind: SparseColumn, Message: "sparse"})
	r.Error(ctx, Event{Stage: "fill", Kind: MissingColumn, Message: "no group"})

	assert.Equal(t, 3, r.Count(ConversionFailure))
	assert.Equal(t, 1, r.Count(SparseColumn))
	assert.Equal(t, 0, r.Count(Degraded))
	assert.Equal(t, map[Kind]int{ConversionFailure: 3, SparseColumn: 1, MissingColumn: 1}, r.Counts())
	assert.NotEmpty(t, messages)

	events := r.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "fill", events[0].Stage)
	assert.Equal(t, LevelError, events[0].Level)
	assert.Equal(t, "load", events[1].Stage)
	assert.Equal(t, 1, events[1].Count)
	assert.Equal(t, LevelWarn, events[2].Level)
}
