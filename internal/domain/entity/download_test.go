package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadResult(t *testing.T) {
	ok := DownloadSucceeded("/tmp/x/video.mp4")
	assert.True(t, ok.OK())
	assert.NoError(t, ok.Err())

	failed := DownloadFailed(DownloadFailureRestricted, "Private video")
	assert.False(t, failed.OK())
	err := failed.Err()
	require.ErrorIs(t, err, ErrDownloadUnavailable)
	assert.Contains(t, err.Error(), "restricted")
	assert.Contains(t, err.Error(), "Private video")

	assert.ErrorIs(t, DownloadResult{}.Err(), ErrDownloadUnavailable)
}
