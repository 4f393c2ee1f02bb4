package faces

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrProviderUnavailable is returned by the Unavailable provider
var ErrProviderUnavailable = errors.New("face landmark model unavailable")

// Point is a landmark position normalized to the image size, 0..1
type Point struct {
	X float64
	Y float64
}

// Face is one detected face as landmarks in face-mesh index order
type Face struct {
	Landmarks []Point
}

// LandmarkProvider returns face landmarks for a decoded image
type LandmarkProvider interface {
	// Available reports whether a model is loaded
	Available() bool

	// Landmarks returns zero or more faces found in img
	Landmarks(img gocv.Mat) ([]Face, error)

	Close() error
}

// Unavailable is the degraded provider used when no model could be loaded
type Unavailable struct {
	Reason string
}

func (Unavailable) Available() bool { return false }

func (Unavailable) Landmarks(gocv.Mat) ([]Face, error) { return nil, ErrProviderUnavailable }

func (Unavailable) Close() error { return nil }
