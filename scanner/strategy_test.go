package scanner

import (
	"context"
	"errors"
	"math"
	"testing"

	"photocull/aiscoring"
	"photocull/config"
	"photocull/faces"
	"photocull/imageprocessor"
	"photocull/types"

	"gocv.io/x/gocv"
)

type stubLandmarks struct {
	faces []faces.Face
	err   error
}

func (s stubLandmarks) Available() bool                          { return true }
func (s stubLandmarks) Landmarks(gocv.Mat) ([]faces.Face, error) { return s.faces, s.err }
func (s stubLandmarks) Close() error                             { return nil }

// meshFace places both eyes; an open eye has lids 0.1 apart, a closed one none
func meshFace(leftOpen, rightOpen bool) faces.Face {
	points := make([]faces.Point, faces.MeshPoints)
	place := func(eye [6]int, cx float64, open bool) {
		lid := 0.0
		if open {
			lid = 0.05
		}
		points[eye[0]] = faces.Point{X: cx - 0.1, Y: 0.5}
		points[eye[3]] = faces.Point{X: cx + 0.1, Y: 0.5}
		points[eye[1]] = faces.Point{X: cx - 0.05, Y: 0.5 - lid}
		points[eye[2]] = faces.Point{X: cx + 0.05, Y: 0.5 - lid}
		points[eye[4]] = faces.Point{X: cx + 0.05, Y: 0.5 + lid}
		points[eye[5]] = faces.Point{X: cx - 0.05, Y: 0.5 + lid}
	}
	place(faces.LeftEye, 0.7, leftOpen)
	place(faces.RightEye, 0.3, rightOpen)
	return faces.Face{Landmarks: points}
}

type stubAnalyzer struct {
	features imageprocessor.Features
	err      error
}

func (s stubAnalyzer) Analyze(gocv.Mat) (imageprocessor.Features, error) { return s.features, s.err }

func grayMat(value float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), 64, 64, gocv.MatTypeCV8UC3)
}

func TestAlgorithmicStrategyScore(t *testing.T) {
	cfg := config.Default()
	proc := imageprocessor.NewProcessor(cfg)
	defer proc.Close()

	tests := []struct {
		name       string
		faces      []faces.Face
		wantCount  int
		wantRatio  float64
		wantClosed bool
		wantScore  float64
	}{
		{"no faces is neutral", nil, 0, 0, false, 0.7},
		{"eyes open", []faces.Face{meshFace(true, true)}, 1, 1, false, 1},
		{"one eye closed", []faces.Face{meshFace(true, false)}, 1, 0.5, false, 0.5},
		{"all eyes closed", []faces.Face{meshFace(false, false), meshFace(false, false)}, 2, 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evaluator := faces.NewEvaluator(stubLandmarks{faces: tt.faces}, cfg.Faces)
			s := NewAlgorithmicStrategy(cfg, proc, evaluator)

			img := grayMat(128)
			defer img.Close()

			rec := types.NewPhotoRecord("/p/DSCF0001.JPG", "/p/DSCF0001.JPG", "", "DSCF0001")
			if err := s.Score(context.Background(), &rec, &img); err != nil {
				t.Fatalf("Score() error: %v", err)
			}

			if math.Abs(rec.Brightness-128) > 0.5 {
				t.Errorf("Brightness = %v, want 128", rec.Brightness)
			}
			if rec.ExposureScore != 1 {
				t.Errorf("ExposureScore = %v, want 1 inside the ideal band", rec.ExposureScore)
			}
			if rec.Sharpness != 0 || rec.SharpnessScore != 0 {
				t.Errorf("flat image sharpness = %v/%v, want 0/0", rec.Sharpness, rec.SharpnessScore)
			}
			if rec.FaceCount != tt.wantCount {
				t.Errorf("FaceCount = %d, want %d", rec.FaceCount, tt.wantCount)
			}
			if math.Abs(rec.EyesOpenRatio-tt.wantRatio) > 1e-9 {
				t.Errorf("EyesOpenRatio = %v, want %v", rec.EyesOpenRatio, tt.wantRatio)
			}
			if rec.AllEyesClosed != tt.wantClosed {
				t.Errorf("AllEyesClosed = %v, want %v", rec.AllEyesClosed, tt.wantClosed)
			}
			if math.Abs(rec.FaceScore-tt.wantScore) > 1e-9 {
				t.Errorf("FaceScore = %v, want %v", rec.FaceScore, tt.wantScore)
			}
		})
	}
}

func TestAlgorithmicStrategyWithoutBuffer(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	evaluator := faces.NewEvaluator(stubLandmarks{faces: []faces.Face{meshFace(false, false)}}, cfg.Faces)
	s := NewAlgorithmicStrategy(cfg, stubAnalyzer{features: imageprocessor.Features{Sharpness: 900}}, evaluator)

	rec := types.NewPhotoRecord("/p/broken.JPG", "/p/broken.JPG", "", "broken")
	want := rec
	if err := s.Score(context.Background(), &rec, nil); err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	if rec != want {
		t.Errorf("Score(nil buffer) changed the record: %+v", rec)
	}
}

func TestAlgorithmicStrategyAnalyzeError(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	s := NewAlgorithmicStrategy(cfg, stubAnalyzer{err: errors.New("empty image")}, nil)

	img := grayMat(10)
	defer img.Close()

	rec := types.NewPhotoRecord("/p/a.JPG", "/p/a.JPG", "", "a")
	if err := s.Score(context.Background(), &rec, &img); err == nil {
		t.Fatal("Score() = nil error, want the analysis failure")
	}
	if rec.Sharpness != 0 || rec.FaceScore != types.NeutralFaceScore {
		t.Errorf("record changed after a failed analysis: %+v", rec)
	}
}

type stubVision struct {
	response string
	err      error
	images   int
}

func (s *stubVision) Chat(_ context.Context, _ string, images [][]byte) (string, error) {
	s.images += len(images)
	return s.response, s.err
}

type stubPreviewer struct {
	data  []byte
	err   error
	paths []string
}

func (s *stubPreviewer) Preview(path string) ([]byte, error) {
	s.paths = append(s.paths, path)
	return s.data, s.err
}

func TestAIStrategyScore(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	client := &stubVision{response: "```json\n" +
		`{"sharpness": 0.9, "exposure": 0.8, "face_quality": 0.6, "face_count": 2, "eyes_closed": true, "composition": 0.75}` +
		"\n```"}
	previews := &stubPreviewer{data: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
	s := NewAIStrategy(cfg, aiscoring.NewScorer(client, cfg.AI), previews)

	if s.Name() != "ai (llava)" {
		t.Errorf("Name() = %q, want %q", s.Name(), "ai (llava)")
	}

	rec := types.NewPhotoRecord("/p/DSCF0002.RAF", "", "/p/DSCF0002.RAF", "DSCF0002")
	if err := s.Score(context.Background(), &rec, nil); err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if len(previews.paths) != 1 || previews.paths[0] != "/p/DSCF0002.RAF" {
		t.Errorf("previewed %v, want the primary path", previews.paths)
	}
	if client.images != 1 {
		t.Errorf("model received %d images, want 1", client.images)
	}
	if rec.SharpnessScore != 0.9 || rec.ExposureScore != 0.8 || rec.FaceScore != 0.6 {
		t.Errorf("scores = %v/%v/%v, want 0.9/0.8/0.6", rec.SharpnessScore, rec.ExposureScore, rec.FaceScore)
	}
	if math.Abs(rec.Sharpness-900) > 1e-9 {
		t.Errorf("Sharpness = %v, want 900", rec.Sharpness)
	}
	if rec.FaceCount != 2 || !rec.AllEyesClosed || rec.AIScore != 0.75 {
		t.Errorf("faces=%d closed=%v composition=%v", rec.FaceCount, rec.AllEyesClosed, rec.AIScore)
	}
}

func TestAIStrategyFailuresKeepDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Default()

	tests := []struct {
		name     string
		client   *stubVision
		previews *stubPreviewer
	}{
		{"preview error", &stubVision{response: `{"sharpness": 1}`}, &stubPreviewer{err: errors.New("no preview")}},
		{"model error", &stubVision{err: errors.New("connection refused")}, &stubPreviewer{data: []byte("x")}},
		{"unparsable reply", &stubVision{response: "I cannot rate this."}, &stubPreviewer{data: []byte("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewAIStrategy(cfg, aiscoring.NewScorer(tt.client, cfg.AI), tt.previews)

			rec := types.NewPhotoRecord("/p/a.JPG", "/p/a.JPG", "", "a")
			want := rec
			if err := s.Score(context.Background(), &rec, nil); err == nil {
				t.Fatal("Score() = nil error, want failure")
			}
			if rec != want {
				t.Errorf("record changed after a failed call: %+v", rec)
			}
		})
	}
}
