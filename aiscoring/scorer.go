package aiscoring

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"photocull/config"
	"photocull/logging"
	"photocull/types"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"
)

// RawSharpnessScale maps the model's 0..1 sharpness onto the Laplacian
// variance range so the hard rules and duplicate/series ranking still work
const RawSharpnessScale = 1000.0

const payloadQuality = 90

// Scorer bounds concurrent model calls and applies their answers to records
type Scorer struct {
	client  VisionClient
	sem     *semaphore.Weighted
	maxEdge int
	logger  zerolog.Logger
}

// NewScorer creates a scorer allowing cfg.MaxConcurrent calls in flight
func NewScorer(client VisionClient, cfg config.AIConfig) *Scorer {
	n := cfg.MaxConcurrent
	if n < 1 {
		n = 1
	}
	return &Scorer{
		client:  client,
		sem:     semaphore.NewWeighted(n),
		maxEdge: cfg.MaxEdge,
		logger:  logging.WithComponent("ai"),
	}
}

// Assess sends payload to the model and parses its answer
func (s *Scorer) Assess(ctx context.Context, payload []byte) (Assessment, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Assessment{}, err
	}
	defer s.sem.Release(1)

	text, err := s.client.Chat(ctx, Prompt, [][]byte{Downscale(payload, s.maxEdge)})
	if err != nil {
		return Assessment{}, err
	}

	a, ok := ParseResponse(text)
	if !ok {
		return Assessment{}, fmt.Errorf("invalid model response: %q", truncate(text, 200))
	}
	return a, nil
}

// Score assesses payload and applies the result to rec. On error rec is left
// untouched.
func (s *Scorer) Score(ctx context.Context, rec *types.PhotoRecord, payload []byte) error {
	a, err := s.Assess(ctx, payload)
	if err != nil {
		s.logger.Warn().Str("stem", rec.Stem).Err(err).Msg("AI scoring failed")
		return err
	}
	a.Apply(rec)
	return nil
}

// Apply copies the assessment into the record's score fields
func (a Assessment) Apply(rec *types.PhotoRecord) {
	rec.SharpnessScore = a.Sharpness
	rec.ExposureScore = a.Exposure
	rec.FaceScore = a.FaceQuality
	rec.FaceCount = a.FaceCount
	rec.AllEyesClosed = a.EyesClosed
	rec.AIScore = a.Composition
	rec.Sharpness = a.Sharpness * RawSharpnessScale
}

// Downscale re-encodes a JPEG so its longest edge is at most maxEdge. Data
// that is already small enough, or cannot be decoded, is returned as is.
func Downscale(data []byte, maxEdge int) []byte {
	if maxEdge <= 0 {
		return data
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= maxEdge && cfg.Height <= maxEdge) {
		return data
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	w, h := fitWithin(cfg.Width, cfg.Height, maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: payloadQuality}); err != nil {
		return data
	}
	return buf.Bytes()
}

func fitWithin(w, h, maxEdge int) (int, int) {
	if w >= h {
		return maxEdge, max(1, h*maxEdge/w)
	}
	return max(1, w*maxEdge/h), maxEdge
}
