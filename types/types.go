package types

import "time"

// NoGroup marks a record that belongs to no duplicate cluster or series
const NoGroup = -1

// Neutral defaults applied to every new record
const (
	NeutralFaceScore       = 0.7
	DefaultUniquenessScore = 1.0
	DefaultSeriesScore     = 0.5
	DefaultRating          = 3
)

// PhotoRecord holds everything the pipeline learns about one photo stem
type PhotoRecord struct {
	// Identity
	Path     string `json:"path"`
	JPEGPath string `json:"jpeg_path,omitempty"`
	RAFPath  string `json:"raf_path,omitempty"`
	Stem     string `json:"stem"`

	// Raw measurements
	Sharpness  float64   `json:"sharpness"`
	Brightness float64   `json:"brightness"`
	CapturedAt time.Time `json:"captured_at,omitempty"`

	// Normalized scores, 0..1
	SharpnessScore  float64 `json:"sharpness_score"`
	ExposureScore   float64 `json:"exposure_score"`
	FaceScore       float64 `json:"face_score"`
	UniquenessScore float64 `json:"uniqueness_score"`
	SeriesScore     float64 `json:"series_score"`
	AIScore         float64 `json:"ai_score"`

	// Face signals
	FaceCount     int     `json:"face_count"`
	EyesOpenRatio float64 `json:"eyes_open_ratio"`
	AllEyesClosed bool    `json:"all_eyes_closed"`

	// Grouping
	Hash             string `json:"hash,omitempty"`
	DuplicateGroup   int    `json:"duplicate_group"`
	IsWorstDuplicate bool   `json:"is_worst_duplicate"`
	SeriesGroup      int    `json:"series_group"`
	IsBestInSeries   bool   `json:"is_best_in_series"`

	// Verdict
	CompositeScore float64 `json:"composite_score"`
	Rating         int     `json:"rating"`
	RatingReason   string  `json:"rating_reason"`

	// LoadError is set when no pixel buffer could be decoded for Path
	LoadError string `json:"load_error,omitempty"`
}

// NewPhotoRecord creates a record with the neutral defaults in place
func NewPhotoRecord(path, jpegPath, rafPath, stem string) PhotoRecord {
	return PhotoRecord{
		Path:            path,
		JPEGPath:        jpegPath,
		RAFPath:         rafPath,
		Stem:            stem,
		FaceScore:       NeutralFaceScore,
		UniquenessScore: DefaultUniquenessScore,
		SeriesScore:     DefaultSeriesScore,
		DuplicateGroup:  NoGroup,
		SeriesGroup:     NoGroup,
		Rating:          DefaultRating,
	}
}

// HasTimestamp reports whether a capture time was resolved
func (r *PhotoRecord) HasTimestamp() bool {
	return !r.CapturedAt.IsZero()
}

// MetadataPath returns the file that should carry the capture metadata,
// preferring the JPEG of a pair
func (r *PhotoRecord) MetadataPath() string {
	if r.JPEGPath != "" {
		return r.JPEGPath
	}
	return r.Path
}
