package faces

import (
	"math"

	"photocull/config"
	"photocull/logging"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// Eye landmark indices in the face-mesh convention: corner, two upper
// lid points, opposite corner, two lower lid points
var (
	LeftEye  = [6]int{362, 385, 387, 263, 373, 380}
	RightEye = [6]int{33, 160, 158, 133, 153, 144}
)

// Result is the face summary of one photo
type Result struct {
	FaceCount     int
	EyesOpenRatio float64
	AllEyesClosed bool
}

// Evaluator reduces landmarks to face count and eye state
type Evaluator struct {
	provider     LandmarkProvider
	closedEAR    float64
	neutralScore float64
	logger       zerolog.Logger
}

// NewEvaluator creates an evaluator backed by provider
func NewEvaluator(provider LandmarkProvider, cfg config.FacesConfig) *Evaluator {
	if provider == nil {
		provider = Unavailable{Reason: "no provider"}
	}
	return &Evaluator{
		provider:     provider,
		closedEAR:    cfg.EARClosedThreshold,
		neutralScore: cfg.NeutralScore,
		logger:       logging.WithComponent("faces"),
	}
}

// Available reports whether the evaluator has a working model
func (e *Evaluator) Available() bool {
	return e.provider.Available()
}

// Detect counts faces and open eyes in img. Without a model, or on a model
// error, it reports no faces.
func (e *Evaluator) Detect(img gocv.Mat) Result {
	if !e.provider.Available() {
		return Result{}
	}

	faces, err := e.provider.Landmarks(img)
	if err != nil {
		e.logger.Warn().Err(err).Msg("landmark detection failed")
		return Result{}
	}
	if len(faces) == 0 {
		return Result{}
	}

	return e.summarize(faces, img.Cols(), img.Rows())
}

func (e *Evaluator) summarize(faces []Face, width, height int) Result {
	eyesOpen, totalEyes := 0, 0
	for _, f := range faces {
		for _, eye := range [][6]int{LeftEye, RightEye} {
			ear, ok := EyeAspectRatio(f.Landmarks, eye, width, height)
			if !ok {
				continue
			}
			totalEyes++
			if ear >= e.closedEAR {
				eyesOpen++
			}
		}
	}

	res := Result{FaceCount: len(faces)}
	if totalEyes > 0 {
		res.EyesOpenRatio = float64(eyesOpen) / float64(totalEyes)
	}
	res.AllEyesClosed = totalEyes > 0 && eyesOpen == 0
	return res
}

// Score returns the face quality score for a detection result
func (e *Evaluator) Score(r Result) float64 {
	return FaceScore(r.FaceCount, r.EyesOpenRatio, e.neutralScore)
}

// FaceScore is neutral when there are no faces, otherwise the open-eye ratio
func FaceScore(faceCount int, eyesOpenRatio, neutral float64) float64 {
	if faceCount == 0 {
		return neutral
	}
	return eyesOpenRatio
}

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) in pixel space.
// ok is false when the face lacks one of the indexed landmarks.
func EyeAspectRatio(landmarks []Point, eye [6]int, width, height int) (ear float64, ok bool) {
	var pts [6][2]float64
	for i, idx := range eye {
		if idx < 0 || idx >= len(landmarks) {
			return 0, false
		}
		pts[i] = [2]float64{landmarks[idx].X * float64(width), landmarks[idx].Y * float64(height)}
	}

	horizontal := dist(pts[0], pts[3])
	if horizontal < 1e-6 {
		return 0, true
	}

	v1 := dist(pts[1], pts[5])
	v2 := dist(pts[2], pts[4])
	return (v1 + v2) / (2.0 * horizontal), true
}

func dist(a, b [2]float64) float64 {
	return math.Hypot(a[0]-b[0], a[1]-b[1])
}
