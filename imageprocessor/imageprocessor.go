package imageprocessor

import (
	"time"

	"photocull/config"

	"gocv.io/x/gocv"
)

// Processor bundles the loaders and metadata readers shared by all workers
type Processor struct {
	cfg      *config.Config
	exif     *ExifTool
	previews PreviewSource
	registry *ImageLoaderRegistry
	times    *CaptureTimeReader
}

// NewProcessor wires the loader registry and metadata readers from cfg
func NewProcessor(cfg *config.Config) *Processor {
	exif := NewExifTool(cfg.Raw.ExiftoolPath)
	return &Processor{
		cfg:      cfg,
		exif:     exif,
		previews: exif,
		registry: NewImageLoaderRegistry(exif, cfg.Raw.DcrawPath),
		times:    NewCaptureTimeReader(exif),
	}
}

// Load decodes path into a BGR buffer. The caller must Close the result.
func (p *Processor) Load(path string) (gocv.Mat, error) {
	return p.registry.LoadImage(path)
}

// Analyze computes the technical quality signals of img
func (p *Processor) Analyze(img gocv.Mat) (Features, error) {
	return Analyze(img, p.cfg.Analysis)
}

// Fingerprint computes the perceptual hash of img
func (p *Processor) Fingerprint(img gocv.Mat) (string, error) {
	return ComputeDifferenceHash(img, p.cfg.Duplicates.HashSize)
}

// CaptureTime reads the capture timestamp of path
func (p *Processor) CaptureTime(path string) (time.Time, bool) {
	return p.times.CaptureTime(path)
}

// Preview returns encoded JPEG bytes for path: the file itself for JPEGs,
// the embedded preview for RAW files. The RAF header pointer is tried before
// exiftool.
func (p *Processor) Preview(path string) ([]byte, error) {
	if IsRawFormat(path) {
		if data, err := readRAFEmbeddedJPEG(path); err == nil {
			return data, nil
		}
		return p.previews.Preview(path)
	}
	return readFile(path)
}

// Close releases the exiftool process
func (p *Processor) Close() error {
	return p.exif.Close()
}
