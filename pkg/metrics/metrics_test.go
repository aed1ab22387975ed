package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	t.Run("should write the registered collectors", func(t *testing.T) {
		StageDuration.WithLabelValues("normalize").Observe(0.5)
		path := filepath.Join(t.TempDir(), "fern.prom")

		require.NoError(t, WriteTextfile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "normalize")
	})
}
