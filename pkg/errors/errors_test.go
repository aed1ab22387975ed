package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineError(t *testing.T) {
	t.Run("should render the stage source and columns", func(t *testing.T) {
		err := NewPipelineError(MissingColumn, "essential columns missing").
			AddStage("load").AddSource("st1").AddColumns("03.Latitude", "04.Longitude")

		assert.Equal(t, "stage 'load' -> source 'st1' -> columns [03.Latitude, 04.Longitude]: essential columns missing", err.Error())
	})

	t.Run("should render the bare message without context", func(t *testing.T) {
		assert.Equal(t, "boom", NewPipelineError(IOFailure, "boom").Error())
	})

	t.Run("should keep the wrapped error", func(t *testing.T) {
		err := NewPipelineErrorf(IOFailure, "failed to parse: %w", io.ErrUnexpectedEOF)

		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.Equal(t, "failed to parse: unexpected EOF", err.Error())
	})

	t.Run("should keep an existing pipeline error when wrapping", func(t *testing.T) {
		inner := NewPipelineError(MissingColumn, "missing")
		wrapped := WrapPipelineError(IOFailure, fmt.Errorf("outer: %w", inner))

		assert.Same(t, inner, wrapped)
		assert.Nil(t, WrapPipelineError(IOFailure, nil))

		other := WrapPipelineError(IOFailure, io.EOF)
		assert.Equal(t, IOFailure, other.Kind)
		assert.ErrorIs(t, other, io.EOF)
	})
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("normalize: %w", NewPipelineError(EmptyResult, "nothing left"))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, EmptyResult, kind)
	assert.True(t, IsKind(err, EmptyResult))
	assert.False(t, IsKind(err, MissingColumn))
	assert.True(t, IsPipelineError(err))
	assert.False(t, IsPipelineError(io.EOF))
}

func TestToHTTPError(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{MissingColumn, http.StatusUnprocessableEntity},
		{EmptyResult, http.StatusUnprocessableEntity},
		{IOFailure, http.StatusBadGateway},
		{EncodingFailure, http.StatusInternalServerError},
		{ConversionFailure, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			err := NewPipelineError(tc.kind, "failed").AddStage("merge").ToHTTPError()

			assert.True(t, httperror.IsHTTPError(err))
			assert.Equal(t, tc.status, httperror.GetStatusCode(err))
		})
	}
}
