package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bep/imagemeta"
	"github.com/rwcarlsen/goexif/exif"
)

// DateSource reads the capture time of a file through an external tool
type DateSource interface {
	DateTimeOriginal(path string) (time.Time, error)
}

// CaptureTimeReader resolves EXIF DateTimeOriginal for JPEG and RAF files
type CaptureTimeReader struct {
	raw DateSource
}

// NewCaptureTimeReader creates a reader. raw serves RAF files and may be nil.
func NewCaptureTimeReader(raw DateSource) *CaptureTimeReader {
	return &CaptureTimeReader{raw: raw}
}

// CaptureTime returns the capture time of path, or false when none is recorded
func (r *CaptureTimeReader) CaptureTime(path string) (time.Time, bool) {
	if IsRawFormat(path) {
		if r.raw == nil {
			return time.Time{}, false
		}
		ts, err := r.raw.DateTimeOriginal(path)
		return ts, err == nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return time.Time{}, false
	}

	if ts, err := DecodeCaptureTime(data); err == nil {
		return ts, true
	}

	// goexif tolerates some maker-note layouts imagemeta rejects
	ts, err := decodeWithGoexif(data)
	return ts, err == nil
}

// decodeWithGoexif reads DateTimeOriginal only. The DateTime tag is the
// modification time and would pull edited files into bursts.
func decodeWithGoexif(data []byte) (time.Time, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, err
	}
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, err
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, err
	}
	ts, ok := parseTagTime(s)
	if !ok {
		return time.Time{}, fmt.Errorf("malformed DateTimeOriginal %q", s)
	}
	return ts, nil
}

// DecodeCaptureTime extracts DateTimeOriginal from JPEG bytes
func DecodeCaptureTime(data []byte) (time.Time, error) {
	var ts time.Time

	_, err := imagemeta.Decode(imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: imagemeta.JPEG,
		Sources:     imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return ti.Source == imagemeta.EXIF && ti.Tag == "DateTimeOriginal"
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			parsed, ok := parseTagTime(ti.Value)
			if !ok {
				return nil
			}
			ts = parsed
			return imagemeta.ErrStopWalking
		},
	})

	if !ts.IsZero() {
		return ts, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode EXIF: %w", err)
	}
	return time.Time{}, errors.New("no DateTimeOriginal tag")
}

// parseTagTime accepts the value shapes imagemeta produces for date tags
func parseTagTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		s := strings.TrimRight(strings.TrimSpace(val), "\x00")
		ts, err := time.ParseInLocation(exifDateLayout, s, time.Local)
		return ts, err == nil
	default:
		return time.Time{}, false
	}
}
