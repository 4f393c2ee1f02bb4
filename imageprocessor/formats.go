package imageprocessor

import (
	"path/filepath"
	"strings"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatRAF     FormatType = "raf"
)

// JPEGExtensions lists JPEG extensions in pairing preference order
var JPEGExtensions = []string{".jpg", ".jpeg"}

// RawExtensions lists the supported RAW extensions
var RawExtensions = []string{".raf"}

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".raf":  FormatRAF,
}

// IsImageFile checks if a file is a supported photo based on extension
func IsImageFile(path string) bool {
	_, supported := formatExtensions[strings.ToLower(filepath.Ext(path))]
	return supported
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	format, exists := formatExtensions[strings.ToLower(filepath.Ext(path))]
	if !exists {
		return FormatUnknown
	}
	return format
}

// IsRawFormat checks if a file is in RAW format
func IsRawFormat(path string) bool {
	return GetFileFormat(path) == FormatRAF
}

// IsJPEGFormat checks if a file is a JPEG
func IsJPEGFormat(path string) bool {
	return GetFileFormat(path) == FormatJPEG
}
