package scanner

import (
	"context"
	"fmt"

	"photocull/aiscoring"
	"photocull/config"
	"photocull/faces"
	"photocull/imageprocessor"
	"photocull/rating"
	"photocull/types"

	"gocv.io/x/gocv"
)

// Strategy fills the score fields of one record. It is chosen once per run
// together with the rating policy that matches its score shape.
type Strategy interface {
	Name() string
	Policy() rating.Policy
	// Score sets the record's scores. img is nil when no pixel buffer
	// could be decoded.
	Score(ctx context.Context, rec *types.PhotoRecord, img *gocv.Mat) error
	// Describe returns the per-photo line printed in verbose mode
	Describe(rec types.PhotoRecord) string
}

// Analyzer computes the technical quality signals of a buffer
type Analyzer interface {
	Analyze(img gocv.Mat) (imageprocessor.Features, error)
}

// Previewer returns encoded JPEG bytes for a photo file
type Previewer interface {
	Preview(path string) ([]byte, error)
}

// AlgorithmicStrategy scores with the local feature extractor and face evaluator
type AlgorithmicStrategy struct {
	analyzer Analyzer
	faces    *faces.Evaluator
	policy   rating.Policy
}

// NewAlgorithmicStrategy creates the local scoring strategy
func NewAlgorithmicStrategy(cfg *config.Config, analyzer Analyzer, evaluator *faces.Evaluator) *AlgorithmicStrategy {
	return &AlgorithmicStrategy{
		analyzer: analyzer,
		faces:    evaluator,
		policy:   rating.AlgorithmicPolicy(cfg),
	}
}

// Name returns the strategy name
func (s *AlgorithmicStrategy) Name() string { return "algorithmic" }

// Policy returns the algorithmic rating policy
func (s *AlgorithmicStrategy) Policy() rating.Policy { return s.policy }

// Score measures sharpness, exposure and faces. Without a buffer the record
// keeps its neutral defaults.
func (s *AlgorithmicStrategy) Score(_ context.Context, rec *types.PhotoRecord, img *gocv.Mat) error {
	if img == nil {
		return nil
	}

	f, err := s.analyzer.Analyze(*img)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	rec.Sharpness = f.Sharpness
	rec.SharpnessScore = f.SharpnessScore
	rec.Brightness = f.Brightness
	rec.ExposureScore = f.ExposureScore

	if s.faces != nil {
		res := s.faces.Detect(*img)
		rec.FaceCount = res.FaceCount
		rec.EyesOpenRatio = res.EyesOpenRatio
		rec.AllEyesClosed = res.AllEyesClosed
		rec.FaceScore = s.faces.Score(res)
	}
	return nil
}

// Describe formats the measured signals
func (s *AlgorithmicStrategy) Describe(rec types.PhotoRecord) string {
	return fmt.Sprintf("sharp=%.0f bright=%.0f faces=%d", rec.Sharpness, rec.Brightness, rec.FaceCount)
}

// AIStrategy scores with an external vision model
type AIStrategy struct {
	scorer   *aiscoring.Scorer
	previews Previewer
	model    string
	policy   rating.Policy
}

// NewAIStrategy creates the vision-model scoring strategy
func NewAIStrategy(cfg *config.Config, scorer *aiscoring.Scorer, previews Previewer) *AIStrategy {
	return &AIStrategy{
		scorer:   scorer,
		previews: previews,
		model:    cfg.AI.Model,
		policy:   rating.AIPolicy(cfg),
	}
}

// Name returns the strategy name with the model
func (s *AIStrategy) Name() string { return "ai (" + s.model + ")" }

// Policy returns the AI rating policy
func (s *AIStrategy) Policy() rating.Policy { return s.policy }

// Score sends the photo's JPEG bytes to the model. The decoded buffer is not
// needed, so a decode failure does not prevent scoring.
func (s *AIStrategy) Score(ctx context.Context, rec *types.PhotoRecord, _ *gocv.Mat) error {
	payload, err := s.previews.Preview(rec.Path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	return s.scorer.Score(ctx, rec, payload)
}

// Describe formats the model's scores
func (s *AIStrategy) Describe(rec types.PhotoRecord) string {
	return fmt.Sprintf("sharp=%.2f expo=%.2f faces=%d comp=%.2f",
		rec.SharpnessScore, rec.ExposureScore, rec.FaceCount, rec.AIScore)
}
