package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingsRoundTrip(t *testing.T) {
	in := []FeatureVector{
		{0, 1, -1, 0.1, 3.4028235e38},
		{float32(math.SmallestNonzeroFloat32), -0.33333334, 6.0221409e+23},
		{},
	}

	blob, err := EncodeEmbeddings(in)
	require.NoError(t, err)

	out, err := DecodeEmbeddings(blob)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, len(in[i]), len(out[i]), "frame %d", i)
		for j := range in[i] {
			assert.Equal(t, math.Float32bits(in[i][j]), math.Float32bits(out[i][j]), "frame %d value %d", i, j)
		}
	}
}

func TestEncodeEmbeddingsNestedArrays(t *testing.T) {
	blob, err := EncodeEmbeddings([]FeatureVector{{1, 2.5}, {0}})
	require.NoError(t, err)
	assert.JSONEq(t, `[[1,2.5],[0]]`, string(blob))

	blob, err = EncodeEmbeddings(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(blob))
}

func TestDecodeEmbeddingsRejectsGarbage(t *testing.T) {
	_, err := DecodeEmbeddings([]byte(`{"frames":1}`))
	assert.Error(t, err)
}

func TestEncodeEmbeddingsRejectsNaN(t *testing.T) {
	_, err := EncodeEmbeddings([]FeatureVector{{float32(math.NaN())}})
	assert.Error(t, err)
}

func TestRunSummaryRecord(t *testing.T) {
	s := NewRunSummary("run-1")

	stored := NewOutcome("https://www.youtube.com/watch?v=a")
	stored.MarkStored(30)
	skipped := NewOutcome("https://www.youtube.com/watch?v=b")
	skipped.MarkSkipped(SkipTooLong, "1400s")
	failed := NewOutcome("https://www.youtube.com/watch?v=c")
	failed.MarkFailed("store down")

	s.Record(*stored)
	s.Record(*skipped)
	s.Record(*skipped)
	s.Record(*failed)

	assert.Equal(t, 1, s.Stored)
	assert.Equal(t, 2, s.Skipped[SkipTooLong])
	assert.Equal(t, 2, s.SkippedTotal())
	assert.Equal(t, 1, s.Failed)
}
