package imageprocessor

import (
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// ImageLoaderRegistry maintains a registry of image loaders
type ImageLoaderRegistry struct {
	loaders map[string]ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the JPEG and RAF loaders
func NewImageLoaderRegistry(previews PreviewSource, dcrawPath string) *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{
		loaders: make(map[string]ImageLoader),
	}

	standardLoader := NewStandardImageLoader()
	for _, ext := range JPEGExtensions {
		registry.RegisterLoader(ext, standardLoader)
	}

	rafLoader := NewRAFImageLoader(previews, dcrawPath)
	for _, ext := range RawExtensions {
		registry.RegisterLoader(ext, rafLoader)
	}

	return registry
}

// RegisterLoader registers a new loader for a specific file extension
func (r *ImageLoaderRegistry) RegisterLoader(ext string, loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.loaders[strings.ToLower(ext)] = loader
}

// GetLoader returns the appropriate loader for the given path
func (r *ImageLoaderRegistry) GetLoader(path string) ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.loaders[strings.ToLower(filepath.Ext(path))]
}

// CanLoadFile checks if any registered loader can handle the given file
func (r *ImageLoaderRegistry) CanLoadFile(path string) bool {
	loader := r.GetLoader(path)
	return loader != nil && loader.CanLoad(path)
}

// LoadImage loads an image using the appropriate registered loader
func (r *ImageLoaderRegistry) LoadImage(path string) (gocv.Mat, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return gocv.NewMat(), newImageLoadError("no suitable loader", path, nil)
	}
	if !loader.CanLoad(path) {
		return gocv.NewMat(), newImageLoadError("file not readable", path, nil)
	}

	return loader.LoadImage(path)
}
