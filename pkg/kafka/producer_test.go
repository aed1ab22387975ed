package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

type fakeWriter struct {
	batches [][]kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, msgs)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testWells(n int) []models.WellRecord {
	runID := uuid.New()
	wells := make([]models.WellRecord, n)
	for i := range wells {
		licence := string(rune('A' + i))
		wells[i] = models.WellRecord{
			RunID:               runID,
			RowNumber:           i,
			StandardizedLicence: &licence,
			Attributes:          database.NewJSONB(map[string]any{}),
		}
	}
	return wells
}

func TestPublishWells(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("should batch one keyed event per well", func(t *testing.T) {
		w := &fakeWriter{}
		p := newProducer(w, ProducerConfig{Topic: "wells", BatchSize: 2}, logger)

		n, err := p.PublishWells(context.Background(), "run-1", testWells(5))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		require.Len(t, w.batches, 3)
		assert.Len(t, w.batches[2], 1)

		msg := w.batches[0][1]
		assert.Equal(t, "licence:B", string(msg.Key))

		var event WellEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, EventWellNormalized, event.EventType)
		assert.Equal(t, "run-1", event.RunID)
		assert.Equal(t, 1, event.Well.RowNumber)
	})

	t.Run("should stop at the first failed batch", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("broker down")}
		p := newProducer(w, ProducerConfig{Topic: "wells"}, logger)

		n, err := p.PublishWells(context.Background(), "run-1", testWells(2))
		require.Error(t, err)
		assert.Zero(t, n)
	})

	t.Run("should refuse to start without brokers", func(t *testing.T) {
		p := newProducer(&fakeWriter{}, ProducerConfig{}, logger)
		assert.Error(t, p.Start(context.Background()))
	})
}
