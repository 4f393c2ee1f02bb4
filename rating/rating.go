// Package rating turns an accumulated photo record into a 1-5 star verdict.
//
// Hard rules are checked first in a fixed order; the first one that fires
// decides the rating. Records no hard rule catches fall into soft bands on the
// weighted composite score. Rating 1 is only ever produced by a hard rule.
package rating

import (
	"fmt"
	"strconv"

	"photocull/config"
	"photocull/types"
)

// Reasons recorded for the hard rules
const (
	ReasonLowSharpness   = "hard: low sharpness"
	ReasonEyesClosed     = "hard: all eyes closed"
	ReasonWorstDuplicate = "hard: worst duplicate"
	ReasonBestInSeries   = "hard: best in series + faces + eyes open + high score"
)

// Policy is the scoring configuration chosen once per run
type Policy struct {
	Name              string
	Weights           config.Weights
	SharpnessFloor    float64
	EyesClosedIsFatal bool
	HardFiveMinScore  float64
	Threshold2        float64
	Threshold3        float64
	Threshold4        float64
}

// AlgorithmicPolicy rates records scored by the local feature extractor
func AlgorithmicPolicy(cfg *config.Config) Policy {
	p := basePolicy(cfg)
	p.Name = "algorithmic"
	p.Weights = cfg.Rating.Weights
	p.EyesClosedIsFatal = true
	return p
}

// AIPolicy rates records scored by a vision model. The model's composition
// score already accounts for closed eyes, so that rule is skipped.
func AIPolicy(cfg *config.Config) Policy {
	p := basePolicy(cfg)
	p.Name = "ai"
	p.Weights = cfg.Rating.AIWeights
	p.EyesClosedIsFatal = false
	return p
}

func basePolicy(cfg *config.Config) Policy {
	return Policy{
		SharpnessFloor:   cfg.Analysis.SharpnessTerrible,
		HardFiveMinScore: cfg.Rating.HardFiveMinScore,
		Threshold2:       cfg.Rating.Threshold2,
		Threshold3:       cfg.Rating.Threshold3,
		Threshold4:       cfg.Rating.Threshold4,
	}
}

// CompositeScore returns the weighted sum of the record's normalized scores
func CompositeScore(rec types.PhotoRecord, w config.Weights) float64 {
	return w.Sharpness*rec.SharpnessScore +
		w.Exposure*rec.ExposureScore +
		w.Faces*rec.FaceScore +
		w.Composition*rec.AIScore +
		w.Uniqueness*rec.UniquenessScore +
		w.Series*rec.SeriesScore
}

// Rate recomputes the composite score and assigns rating and reason
func Rate(rec types.PhotoRecord, p Policy) types.PhotoRecord {
	rec.CompositeScore = CompositeScore(rec, p.Weights)
	rec.Rating, rec.RatingReason = decide(rec, p)
	return rec
}

// RateAll rates every record in place
func RateAll(records []types.PhotoRecord, p Policy) {
	for i := range records {
		records[i] = Rate(records[i], p)
	}
}

func decide(rec types.PhotoRecord, p Policy) (int, string) {
	switch {
	case rec.Sharpness < p.SharpnessFloor:
		return 1, ReasonLowSharpness
	case p.EyesClosedIsFatal && rec.AllEyesClosed:
		return 1, ReasonEyesClosed
	case rec.IsWorstDuplicate:
		return 1, ReasonWorstDuplicate
	case rec.IsBestInSeries && rec.FaceCount > 0 && !rec.AllEyesClosed &&
		rec.CompositeScore >= p.HardFiveMinScore:
		return 5, ReasonBestInSeries
	}

	score := rec.CompositeScore
	switch {
	case score < p.Threshold2:
		return 2, softReason(score, "<", p.Threshold2)
	case score < p.Threshold3:
		return 3, softReason(score, "<", p.Threshold3)
	case score < p.Threshold4:
		return 4, softReason(score, "<", p.Threshold4)
	default:
		return 5, softReason(score, ">=", p.Threshold4)
	}
}

func softReason(score float64, op string, threshold float64) string {
	return fmt.Sprintf("soft: score %.2f %s %s", score, op, strconv.FormatFloat(threshold, 'f', -1, 64))
}
