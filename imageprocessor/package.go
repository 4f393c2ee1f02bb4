// Package imageprocessor loads photos into pixel buffers and derives the
// per-photo signals used for culling: sharpness, exposure, a perceptual
// fingerprint and the capture timestamp.
package imageprocessor

import "gocv.io/x/gocv"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads and returns the image as a BGR buffer
	LoadImage(path string) (gocv.Mat, error)
}
