package imageprocessor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"photocull/logging"

	"github.com/barasher/go-exiftool"
	"github.com/rs/zerolog"
)

// ErrExiftoolUnavailable is returned when the exiftool process could not be started
var ErrExiftoolUnavailable = errors.New("exiftool unavailable")

// previewTags lists embedded preview tags, largest first
var previewTags = []string{
	"PreviewImage",
	"JpgFromRaw",
	"OtherImage",
	"ThumbnailImage",
}

const exifDateLayout = "2006:01:02 15:04:05"

// ExifTool wraps one long-running exiftool process shared by all workers.
// The process is started on first use; a failed start is permanent for the run.
type ExifTool struct {
	binaryPath string
	logger     zerolog.Logger

	once    sync.Once
	et      *exiftool.Exiftool
	initErr error
}

// NewExifTool creates a lazily started exiftool handle
func NewExifTool(binaryPath string) *ExifTool {
	return &ExifTool{
		binaryPath: binaryPath,
		logger:     logging.WithComponent("exiftool"),
	}
}

func (t *ExifTool) get() (*exiftool.Exiftool, error) {
	t.once.Do(func() {
		if !hasCommand(t.binaryPath) {
			t.initErr = fmt.Errorf("%w: %q not found", ErrExiftoolUnavailable, t.binaryPath)
			t.logger.Warn().Err(t.initErr).Msg("RAW previews fall back to the embedded header and dcraw")
			return
		}

		buf := make([]byte, 128*1024)
		et, err := exiftool.NewExiftool(
			exiftool.SetExiftoolBinaryPath(t.binaryPath),
			exiftool.ExtractAllBinaryMetadata(),
			exiftool.Buffer(buf, 256*1024*1024),
		)
		if err != nil {
			t.initErr = fmt.Errorf("%w: %v", ErrExiftoolUnavailable, err)
			t.logger.Warn().Err(err).Msg("failed to start exiftool")
			return
		}
		t.et = et
	})
	return t.et, t.initErr
}

func (t *ExifTool) extract(path string) (exiftool.FileMetadata, error) {
	et, err := t.get()
	if err != nil {
		return exiftool.FileMetadata{}, err
	}

	infos := et.ExtractMetadata(path)
	if len(infos) == 0 {
		return exiftool.FileMetadata{}, fmt.Errorf("no metadata extracted from %s", path)
	}
	if infos[0].Err != nil {
		return exiftool.FileMetadata{}, infos[0].Err
	}
	return infos[0], nil
}

// Preview returns the largest embedded JPEG preview of a RAW file
func (t *ExifTool) Preview(path string) ([]byte, error) {
	fm, err := t.extract(path)
	if err != nil {
		return nil, err
	}

	for _, tag := range previewTags {
		if data, ok := decodeBinaryField(fm.Fields[tag]); ok {
			t.logger.Debug().Str("path", path).Str("tag", tag).Msg("extracted preview")
			return data, nil
		}
	}
	return nil, fmt.Errorf("no embedded preview in %s", path)
}

// DateTimeOriginal returns the capture time recorded by the camera
func (t *ExifTool) DateTimeOriginal(path string) (time.Time, error) {
	fm, err := t.extract(path)
	if err != nil {
		return time.Time{}, err
	}

	s, err := fm.GetString("DateTimeOriginal")
	if err != nil {
		return time.Time{}, fmt.Errorf("no capture time in %s: %w", path, err)
	}
	return time.ParseInLocation(exifDateLayout, s, time.Local)
}

// Close stops the exiftool process if it was started
func (t *ExifTool) Close() error {
	if t.et != nil {
		return t.et.Close()
	}
	return nil
}
