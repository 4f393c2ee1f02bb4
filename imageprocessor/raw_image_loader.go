package imageprocessor

import (
	"bytes"
	"os/exec"

	"photocull/logging"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// PreviewSource extracts an embedded JPEG preview from a RAW file
type PreviewSource interface {
	Preview(path string) ([]byte, error)
}

// RAFImageLoader loads Fujifilm RAF files. The embedded preview is tried
// first; a full dcraw decode is the fallback.
type RAFImageLoader struct {
	BaseImageLoader
	previews  PreviewSource
	dcrawPath string
	logger    zerolog.Logger
}

// NewRAFImageLoader creates a RAF loader. previews may be nil.
func NewRAFImageLoader(previews PreviewSource, dcrawPath string) *RAFImageLoader {
	return &RAFImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{FormatRAF},
		},
		previews:  previews,
		dcrawPath: dcrawPath,
		logger:    logging.WithComponent("raf"),
	}
}

// LoadImage returns a color buffer for the RAF file or a DecodeError
func (l *RAFImageLoader) LoadImage(path string) (gocv.Mat, error) {
	// Fast path: preview stored in the RAF header
	if data, err := readRAFEmbeddedJPEG(path); err == nil {
		if img, err := matFromBytes(data); err == nil {
			return img, nil
		}
	} else {
		l.logger.Debug().Str("path", path).Err(err).Msg("no header preview")
	}

	if l.previews != nil {
		if data, err := l.previews.Preview(path); err == nil {
			if img, err := matFromBytes(data); err == nil {
				return img, nil
			}
		} else {
			l.logger.Debug().Str("path", path).Err(err).Msg("no exiftool preview")
		}
	}

	img, err := l.tryDcraw(path)
	if err != nil {
		return gocv.NewMat(), newImageLoadError("failed to decode RAF", path, err)
	}
	return img, nil
}

// tryDcraw runs a full demosaic and decodes the TIFF written to stdout
func (l *RAFImageLoader) tryDcraw(path string) (gocv.Mat, error) {
	if !hasCommand(l.dcrawPath) {
		return gocv.NewMat(), &exec.Error{Name: l.dcrawPath, Err: exec.ErrNotFound}
	}

	// -c = output to stdout, -w = camera white balance, -T = TIFF
	cmd := exec.Command(l.dcrawPath, "-c", "-w", "-T", path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		l.logger.Warn().Str("path", path).Err(err).Str("stderr", stderr.String()).Msg("dcraw conversion failed")
		return gocv.NewMat(), err
	}

	return matFromBytes(stdout.Bytes())
}
