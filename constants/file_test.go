package constants_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/textra-dev/textra/constants"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		mime   string
		ext    string
		want   constants.FileFormat
		wantOK bool
	}{
		{"pdf mime", "application/pdf", "bin", constants.PDF, true},
		{"pdf ext only", "", "pdf", constants.PDF, true},
		{"pdf ext with dot", "", ".PDF", constants.PDF, true},
		{"pdf mime wins over image ext", "application/pdf", "png", constants.PDF, true},
		{"jpeg mime", "image/jpeg", "", constants.IMAGE, true},
		{"png ext", "", "png", constants.IMAGE, true},
		{"tiff ext", "", "tiff", constants.IMAGE, true},
		{"bmp ext", "", "bmp", constants.IMAGE, true},
		{"gif ext", "", "gif", constants.IMAGE, true},
		{"jpg ext uppercase", "", "JPG", constants.IMAGE, true},
		{"image mime unknown subtype", "image/webp", "", constants.IMAGE, true},
		{"plain mime", "text/plain", "", constants.TEXT, true},
		{"txt ext", "", "txt", constants.TEXT, true},
		{"unknown", "application/zip", "zip", "", false},
		{"empty", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := constants.DetectFormat(tt.mime, tt.ext)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Selection is pure: repeated calls with the same input agree.
func TestDetectFormatDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		got, ok := constants.DetectFormat("application/pdf", "png")
		assert.True(t, ok)
		assert.Equal(t, constants.PDF, got)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, constants.CanTransition(constants.JobStatusUploaded, constants.JobStatusProcessing))
	assert.True(t, constants.CanTransition(constants.JobStatusProcessing, constants.JobStatusReady))
	assert.True(t, constants.CanTransition(constants.JobStatusProcessing, constants.JobStatusError))
	assert.True(t, constants.CanTransition(constants.JobStatusReady, constants.JobStatusProcessing))
	assert.True(t, constants.CanTransition(constants.JobStatusError, constants.JobStatusProcessing))

	assert.False(t, constants.CanTransition(constants.JobStatusUploaded, constants.JobStatusReady))
	assert.False(t, constants.CanTransition(constants.JobStatusReady, constants.JobStatusError))
	assert.False(t, constants.CanTransition(constants.JobStatusError, constants.JobStatusReady))
	assert.False(t, constants.CanTransition(constants.JobStatusProcessing, constants.JobStatusUploaded))
}
