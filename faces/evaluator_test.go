package faces

import (
	"errors"
	"math"
	"testing"

	"photocull/config"

	"gocv.io/x/gocv"
)

type fakeProvider struct {
	faces []Face
	err   error
}

func (f fakeProvider) Available() bool                    { return true }
func (f fakeProvider) Landmarks(gocv.Mat) ([]Face, error) { return f.faces, f.err }
func (f fakeProvider) Close() error                       { return nil }

// setEye places one eye with the given lid opening, as a fraction of image height
func setEye(points []Point, eye [6]int, cx, opening float64) {
	points[eye[0]] = Point{X: cx - 0.1, Y: 0.5}
	points[eye[3]] = Point{X: cx + 0.1, Y: 0.5}
	points[eye[1]] = Point{X: cx - 0.05, Y: 0.5 - opening/2}
	points[eye[5]] = Point{X: cx - 0.05, Y: 0.5 + opening/2}
	points[eye[2]] = Point{X: cx + 0.05, Y: 0.5 - opening/2}
	points[eye[4]] = Point{X: cx + 0.05, Y: 0.5 + opening/2}
}

func makeFace(leftOpen, rightOpen bool) Face {
	points := make([]Point, MeshPoints)
	opening := func(open bool) float64 {
		if open {
			return 0.06
		}
		return 0.01
	}
	setEye(points, LeftEye, 0.7, opening(leftOpen))
	setEye(points, RightEye, 0.3, opening(rightOpen))
	return Face{Landmarks: points}
}

func testImage() gocv.Mat {
	return gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
}

func TestEyeAspectRatio(t *testing.T) {
	t.Parallel()

	face := makeFace(true, false)
	open, ok := EyeAspectRatio(face.Landmarks, LeftEye, 100, 100)
	if !ok || math.Abs(open-0.3) > 1e-9 {
		t.Errorf("EyeAspectRatio(open) = %v, %v; want 0.3, true", open, ok)
	}
	closed, ok := EyeAspectRatio(face.Landmarks, RightEye, 100, 100)
	if !ok || math.Abs(closed-0.05) > 1e-9 {
		t.Errorf("EyeAspectRatio(closed) = %v, %v; want 0.05, true", closed, ok)
	}
}

func TestEyeAspectRatioDegenerate(t *testing.T) {
	t.Parallel()

	points := make([]Point, MeshPoints)
	ear, ok := EyeAspectRatio(points, LeftEye, 100, 100)
	if !ok || ear != 0 {
		t.Errorf("EyeAspectRatio(collapsed eye) = %v, %v; want 0, true", ear, ok)
	}

	if _, ok := EyeAspectRatio(points[:100], LeftEye, 100, 100); ok {
		t.Error("EyeAspectRatio() ok = true for a face missing eye landmarks")
	}
}

func TestDetect(t *testing.T) {
	img := testImage()
	defer img.Close()
	cfg := config.Default().Faces

	tests := []struct {
		name     string
		provider LandmarkProvider
		want     Result
	}{
		{"unavailable", Unavailable{}, Result{}},
		{"provider error", fakeProvider{err: errors.New("boom")}, Result{}},
		{"no faces", fakeProvider{}, Result{}},
		{"eyes open", fakeProvider{faces: []Face{makeFace(true, true)}}, Result{FaceCount: 1, EyesOpenRatio: 1}},
		{"one eye closed", fakeProvider{faces: []Face{makeFace(true, false)}}, Result{FaceCount: 1, EyesOpenRatio: 0.5}},
		{"all closed", fakeProvider{faces: []Face{makeFace(false, false), makeFace(false, false)}}, Result{FaceCount: 2, AllEyesClosed: true}},
		{"mixed faces", fakeProvider{faces: []Face{makeFace(true, true), makeFace(false, false)}}, Result{FaceCount: 2, EyesOpenRatio: 0.5}},
		{"faces without eye landmarks", fakeProvider{faces: []Face{{Landmarks: make([]Point, 10)}}}, Result{FaceCount: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(tt.provider, cfg)
			if e.Available() != tt.provider.Available() {
				t.Errorf("Available() = %v, want %v", e.Available(), tt.provider.Available())
			}
			got := e.Detect(img)
			if got != tt.want {
				t.Errorf("Detect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFaceScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		count int
		ratio float64
		want  float64
	}{
		{0, 0, 0.7},
		{0, 1, 0.7},
		{1, 0, 0},
		{1, 0.5, 0.5},
		{3, 1, 1},
	}

	for _, tt := range tests {
		if got := FaceScore(tt.count, tt.ratio, 0.7); got != tt.want {
			t.Errorf("FaceScore(%d, %v) = %v, want %v", tt.count, tt.ratio, got, tt.want)
		}
	}
}

func TestNewProviderDegrades(t *testing.T) {
	cfg := config.Default().Faces
	cfg.CascadePath = "/nonexistent/cascade.xml"
	cfg.MeshModelPath = "/nonexistent/mesh.onnx"

	p := NewProvider(cfg)
	if p.Available() {
		t.Fatal("NewProvider() with missing models is available")
	}
	if _, err := p.Landmarks(gocv.NewMat()); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Landmarks() error = %v, want ErrProviderUnavailable", err)
	}

	cfg.Enabled = false
	if NewProvider(cfg).Available() {
		t.Error("NewProvider() with faces disabled is available")
	}
}
