package imageprocessor

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ErrCouldNotDecode is the sentinel wrapped by every DecodeError
var ErrCouldNotDecode = errors.New("could not decode image")

// DecodeError reports a file for which no pixel buffer could be produced
type DecodeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// Unwrap lets errors.Is match both ErrCouldNotDecode and the cause
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCouldNotDecode, e.Err}
	}
	return []error{ErrCouldNotDecode}
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)

	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}

	return false
}

// DefaultLoadImage reads a file OpenCV can decode natively, in color
func (l *BaseImageLoader) DefaultLoadImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), newImageLoadError("failed to load image", path, nil)
	}
	return img, nil
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// newImageLoadError creates a standardized error for image loading failures
func newImageLoadError(reason, path string, err error) error {
	return &DecodeError{Path: path, Reason: reason, Err: err}
}
