package imageprocessor

import (
	"errors"

	"photocull/config"

	"gocv.io/x/gocv"
)

// Features are the technical quality signals of one pixel buffer
type Features struct {
	Sharpness      float64
	SharpnessScore float64
	Brightness     float64
	ExposureScore  float64
}

// toGray converts a BGR buffer to single-channel gray. The caller owns the result.
func toGray(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
		return gray
	}
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	return gray
}

// ComputeSharpness returns the variance of the Laplacian of the gray image
func ComputeSharpness(img gocv.Mat) (float64, error) {
	if img.Empty() {
		return 0, errors.New("cannot compute sharpness for empty image")
	}

	gray := toGray(img)
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stdDev := gocv.NewMat()
	defer stdDev.Close()
	gocv.MeanStdDev(lap, &mean, &stdDev)

	sd := stdDev.GetDoubleAt(0, 0)
	return sd * sd, nil
}

// ComputeBrightness returns the mean gray level, 0..255
func ComputeBrightness(img gocv.Mat) (float64, error) {
	if img.Empty() {
		return 0, errors.New("cannot compute brightness for empty image")
	}

	gray := toGray(img)
	defer gray.Close()

	return gray.Mean().Val1, nil
}

// NormalizeSharpness maps a Laplacian variance onto 0..1 in three linear segments
func NormalizeSharpness(sharpness float64, cfg config.AnalysisConfig) float64 {
	switch {
	case sharpness < cfg.SharpnessTerrible:
		return 0.0
	case sharpness < cfg.SharpnessLow:
		return (sharpness - cfg.SharpnessTerrible) / (cfg.SharpnessLow - cfg.SharpnessTerrible) * 0.5
	case sharpness < cfg.SharpnessHigh:
		return 0.5 + (sharpness-cfg.SharpnessLow)/(cfg.SharpnessHigh-cfg.SharpnessLow)*0.5
	default:
		return 1.0
	}
}

// ScoreExposure is 1.0 inside the ideal band and ramps to 0 at black and white
func ScoreExposure(brightness float64, cfg config.AnalysisConfig) float64 {
	switch {
	case brightness >= cfg.BrightnessIdealLow && brightness <= cfg.BrightnessIdealHigh:
		return 1.0
	case brightness < cfg.BrightnessIdealLow:
		return max(0.0, brightness/cfg.BrightnessIdealLow)
	default:
		return max(0.0, (255-brightness)/(255-cfg.BrightnessIdealHigh))
	}
}

// Analyze computes all technical quality signals for img
func Analyze(img gocv.Mat, cfg config.AnalysisConfig) (Features, error) {
	sharpness, err := ComputeSharpness(img)
	if err != nil {
		return Features{}, err
	}
	brightness, err := ComputeBrightness(img)
	if err != nil {
		return Features{}, err
	}

	return Features{
		Sharpness:      sharpness,
		SharpnessScore: NormalizeSharpness(sharpness, cfg),
		Brightness:     brightness,
		ExposureScore:  ScoreExposure(brightness, cfg),
	}, nil
}
