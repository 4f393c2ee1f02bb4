package imageprocessor

import (
	"gocv.io/x/gocv"
)

// StandardImageLoader handles JPEG files
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for JPEG files
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatJPEG},
		},
	}
}

// LoadImage loads a JPEG file
func (l *StandardImageLoader) LoadImage(path string) (gocv.Mat, error) {
	return l.DefaultLoadImage(path)
}
