package faces

import (
	"fmt"
	"image"
	"os"
	"sync"

	"photocull/config"
	"photocull/logging"

	"gocv.io/x/gocv"
)

const (
	// MeshPoints is the number of landmarks of the face-mesh model
	MeshPoints = 468

	meshInputSize = 192
	cropMargin    = 0.25
)

// MeshProvider finds faces with a Haar cascade and runs a face-mesh ONNX
// network on each crop. OpenCV objects are not goroutine safe, so calls are
// serialized.
type MeshProvider struct {
	mu       sync.Mutex
	cascade  gocv.CascadeClassifier
	net      gocv.Net
	maxFaces int
}

// NewProvider loads the models named in cfg, or returns Unavailable
func NewProvider(cfg config.FacesConfig) LandmarkProvider {
	logger := logging.WithComponent("faces")

	if !cfg.Enabled {
		return Unavailable{Reason: "face analysis disabled"}
	}

	p, err := NewMeshProvider(cfg.CascadePath, cfg.MeshModelPath, cfg.MaxFaces)
	if err != nil {
		logger.Warn().Err(err).Msg("face analysis disabled for this run")
		return Unavailable{Reason: err.Error()}
	}

	logger.Debug().Str("model", cfg.MeshModelPath).Msg("face mesh loaded")
	return p
}

// NewMeshProvider loads the cascade and the face-mesh network
func NewMeshProvider(cascadePath, modelPath string, maxFaces int) (*MeshProvider, error) {
	if _, err := os.Stat(cascadePath); err != nil {
		return nil, fmt.Errorf("face cascade: %w", err)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("face mesh model: %w", err)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cascadePath) {
		cascade.Close()
		return nil, fmt.Errorf("failed to load face cascade from %s", cascadePath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		cascade.Close()
		return nil, fmt.Errorf("failed to load face mesh model from %s", modelPath)
	}

	if maxFaces <= 0 {
		maxFaces = 10
	}

	return &MeshProvider{
		cascade:  cascade,
		net:      net,
		maxFaces: maxFaces,
	}, nil
}

// Available reports that the models are loaded
func (p *MeshProvider) Available() bool { return true }

// Landmarks detects faces and returns MeshPoints landmarks for each
func (p *MeshProvider) Landmarks(img gocv.Mat) ([]Face, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	rects := p.cascade.DetectMultiScale(gray)
	if len(rects) > p.maxFaces {
		rects = rects[:p.maxFaces]
	}

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	faces := make([]Face, 0, len(rects))
	for _, r := range rects {
		crop := expandRect(r, cropMargin).Intersect(bounds)
		if crop.Empty() {
			continue
		}

		face, err := p.inferMesh(img, crop, bounds)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}

	return faces, nil
}

// inferMesh runs the network on one crop and maps points back to the image
func (p *MeshProvider) inferMesh(img gocv.Mat, crop, bounds image.Rectangle) (Face, error) {
	region := img.Region(crop)
	defer region.Close()

	blob := gocv.BlobFromImage(region, 1.0/255.0, image.Pt(meshInputSize, meshInputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	out := p.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return Face{}, fmt.Errorf("failed to read mesh output: %w", err)
	}
	if len(data) < MeshPoints*3 {
		return Face{}, fmt.Errorf("mesh output has %d values, want %d", len(data), MeshPoints*3)
	}

	sx := float64(crop.Dx()) / meshInputSize
	sy := float64(crop.Dy()) / meshInputSize
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	points := make([]Point, MeshPoints)
	for i := range points {
		x := float64(crop.Min.X) + float64(data[i*3])*sx
		y := float64(crop.Min.Y) + float64(data[i*3+1])*sy
		points[i] = Point{X: x / w, Y: y / h}
	}
	return Face{Landmarks: points}, nil
}

// Close releases the OpenCV objects
func (p *MeshProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.net.Close(); err != nil {
		return err
	}
	return p.cascade.Close()
}

// expandRect grows r by margin of its size on every side
func expandRect(r image.Rectangle, margin float64) image.Rectangle {
	dx := int(float64(r.Dx()) * margin)
	dy := int(float64(r.Dy()) * margin)
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy)
}
