package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable threshold and weight of a culling run
type Config struct {
	Workers int    `yaml:"workers"`
	LogFile string `yaml:"log_file"`

	Analysis   AnalysisConfig   `yaml:"analysis"`
	Faces      FacesConfig      `yaml:"faces"`
	Duplicates DuplicatesConfig `yaml:"duplicates"`
	Series     SeriesConfig     `yaml:"series"`
	Rating     RatingConfig     `yaml:"rating"`
	AI         AIConfig         `yaml:"ai"`
	Raw        RawConfig        `yaml:"raw"`
}

// AnalysisConfig holds sharpness and exposure thresholds
type AnalysisConfig struct {
	SharpnessTerrible   float64 `yaml:"sharpness_terrible"`
	SharpnessLow        float64 `yaml:"sharpness_low"`
	SharpnessHigh       float64 `yaml:"sharpness_high"`
	BrightnessIdealLow  float64 `yaml:"brightness_ideal_low"`
	BrightnessIdealHigh float64 `yaml:"brightness_ideal_high"`
}

// FacesConfig locates the face models and holds the eye threshold
type FacesConfig struct {
	Enabled            bool    `yaml:"enabled"`
	CascadePath        string  `yaml:"cascade_path"`
	MeshModelPath      string  `yaml:"mesh_model_path"`
	EARClosedThreshold float64 `yaml:"ear_closed_threshold"`
	NeutralScore       float64 `yaml:"neutral_score"`
	MaxFaces           int     `yaml:"max_faces"`
}

// DuplicatesConfig controls the perceptual hash
type DuplicatesConfig struct {
	HashSize  int `yaml:"hash_size"`
	Threshold int `yaml:"threshold"`
}

// SeriesConfig controls burst segmentation
type SeriesConfig struct {
	GapSeconds float64 `yaml:"gap_seconds"`
}

// Weights is one weighted-sum configuration for the composite score
type Weights struct {
	Sharpness   float64 `yaml:"sharpness"`
	Exposure    float64 `yaml:"exposure"`
	Faces       float64 `yaml:"faces"`
	Composition float64 `yaml:"composition"`
	Uniqueness  float64 `yaml:"uniqueness"`
	Series      float64 `yaml:"series"`
}

// Sum returns the total of all weights
func (w Weights) Sum() float64 {
	return w.Sharpness + w.Exposure + w.Faces + w.Composition + w.Uniqueness + w.Series
}

// RatingConfig holds the weight sets and soft band thresholds
type RatingConfig struct {
	Weights          Weights `yaml:"weights"`
	AIWeights        Weights `yaml:"ai_weights"`
	Threshold2       float64 `yaml:"threshold_2"`
	Threshold3       float64 `yaml:"threshold_3"`
	Threshold4       float64 `yaml:"threshold_4"`
	HardFiveMinScore float64 `yaml:"hard_five_min_score"`
}

// AIConfig points at an Ollama-compatible vision endpoint
type AIConfig struct {
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxConcurrent  int64  `yaml:"max_concurrent"`
	MaxEdge        int    `yaml:"max_edge"`
}

// Timeout returns the request timeout as a duration
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RawConfig locates the external RAW tools
type RawConfig struct {
	ExiftoolPath string `yaml:"exiftool_path"`
	DcrawPath    string `yaml:"dcraw_path"`
}

const weightTolerance = 1e-6

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Workers: 0,
		Analysis: AnalysisConfig{
			SharpnessTerrible:   50,
			SharpnessLow:        200,
			SharpnessHigh:       800,
			BrightnessIdealLow:  100,
			BrightnessIdealHigh: 180,
		},
		Faces: FacesConfig{
			Enabled:            true,
			CascadePath:        "./models/haarcascade_frontalface_default.xml",
			MeshModelPath:      "./models/face_mesh.onnx",
			EARClosedThreshold: 0.20,
			NeutralScore:       0.7,
			MaxFaces:           10,
		},
		Duplicates: DuplicatesConfig{
			HashSize:  8,
			Threshold: 10,
		},
		Series: SeriesConfig{
			GapSeconds: 3.0,
		},
		Rating: RatingConfig{
			Weights: Weights{
				Sharpness:  0.35,
				Exposure:   0.20,
				Faces:      0.25,
				Uniqueness: 0.10,
				Series:     0.10,
			},
			AIWeights: Weights{
				Sharpness:   0.25,
				Exposure:    0.15,
				Faces:       0.20,
				Composition: 0.20,
				Uniqueness:  0.10,
				Series:      0.10,
			},
			Threshold2:       0.35,
			Threshold3:       0.55,
			Threshold4:       0.80,
			HardFiveMinScore: 0.85,
		},
		AI: AIConfig{
			URL:            "http://localhost:11434",
			Model:          "llava",
			TimeoutSeconds: 300,
			MaxConcurrent:  1,
			MaxEdge:        1600,
		},
		Raw: RawConfig{
			ExiftoolPath: "exiftool",
			DcrawPath:    "dcraw",
		},
	}
}

// Load reads configuration from path, or from the first candidate file found,
// over the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks threshold ordering and weight sums
func (c *Config) Validate() error {
	var errs []error

	a := c.Analysis
	if !(a.SharpnessTerrible < a.SharpnessLow && a.SharpnessLow < a.SharpnessHigh) {
		errs = append(errs, fmt.Errorf("sharpness thresholds must increase: %v < %v < %v",
			a.SharpnessTerrible, a.SharpnessLow, a.SharpnessHigh))
	}
	if !(a.BrightnessIdealLow > 0 && a.BrightnessIdealLow <= a.BrightnessIdealHigh && a.BrightnessIdealHigh < 255) {
		errs = append(errs, fmt.Errorf("brightness band [%v,%v] must lie inside (0,255)",
			a.BrightnessIdealLow, a.BrightnessIdealHigh))
	}

	if c.Duplicates.HashSize < 2 {
		errs = append(errs, fmt.Errorf("hash size must be at least 2, got %d", c.Duplicates.HashSize))
	}
	if c.Series.GapSeconds < 0 {
		errs = append(errs, fmt.Errorf("series gap must not be negative, got %v", c.Series.GapSeconds))
	}

	r := c.Rating
	if sum := r.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		errs = append(errs, fmt.Errorf("rating weights sum to %v, want 1.0", sum))
	}
	if r.Weights.Composition != 0 {
		errs = append(errs, errors.New("algorithmic weights cannot weight composition"))
	}
	if sum := r.AIWeights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		errs = append(errs, fmt.Errorf("AI rating weights sum to %v, want 1.0", sum))
	}
	if !(r.Threshold2 < r.Threshold3 && r.Threshold3 < r.Threshold4) {
		errs = append(errs, fmt.Errorf("rating thresholds must increase: %v < %v < %v",
			r.Threshold2, r.Threshold3, r.Threshold4))
	}

	if c.AI.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("ai.max_concurrent must be at least 1, got %d", c.AI.MaxConcurrent))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnv() {
	c.AI.URL = getenv("PHOTOCULL_OLLAMA_URL", c.AI.URL)
	c.AI.Model = getenv("PHOTOCULL_OLLAMA_MODEL", c.AI.Model)
	c.Faces.MeshModelPath = getenv("PHOTOCULL_FACE_MODEL", c.Faces.MeshModelPath)
	c.Faces.CascadePath = getenv("PHOTOCULL_FACE_CASCADE", c.Faces.CascadePath)
	c.Raw.ExiftoolPath = getenv("PHOTOCULL_EXIFTOOL", c.Raw.ExiftoolPath)
	c.Raw.DcrawPath = getenv("PHOTOCULL_DCRAW", c.Raw.DcrawPath)
	c.Workers = getenvInt("PHOTOCULL_WORKERS", c.Workers)
	c.LogFile = getenv("PHOTOCULL_LOG_FILE", c.LogFile)
}

func findConfigFile() string {
	candidates := []string{
		"./photocull.yaml",
		"./photocull.yml",
		filepath.Join(os.Getenv("HOME"), ".photocull", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
