package imageprocessor

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"gocv.io/x/gocv"
)

// Utility functions used across the various image loaders

// hasCommand checks if an external tool is available on the system
func hasCommand(name string) bool {
	if name == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}

// matFromBytes decodes an encoded image (JPEG, TIFF, ...) into a BGR Mat
func matFromBytes(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), errors.New("empty image data")
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), err
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), errors.New("decoder returned an empty image")
	}
	return img, nil
}

// decodeBinaryField unpacks a "base64:" value produced by exiftool -b -json
func decodeBinaryField(v interface{}) ([]byte, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "base64:") {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, "base64:"))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

const (
	rafMagic            = "FUJIFILMCCD-RAW"
	rafJPEGOffsetField  = 84
	rafHeaderMinimumLen = 92
)

// readRAFEmbeddedJPEG returns the full-size JPEG preview stored in a RAF
// header. The header carries the preview offset and length as big-endian
// uint32 values at byte 84.
func readRAFEmbeddedJPEG(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, rafHeaderMinimumLen)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("short RAF header: %w", err)
	}
	if !bytes.HasPrefix(header, []byte(rafMagic)) {
		return nil, errors.New("not a RAF file")
	}

	offset := binary.BigEndian.Uint32(header[rafJPEGOffsetField:])
	length := binary.BigEndian.Uint32(header[rafJPEGOffsetField+4:])
	if offset < rafHeaderMinimumLen || length < 4 {
		return nil, fmt.Errorf("invalid RAF preview location %d+%d", offset, length)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if int64(offset)+int64(length) > info.Size() {
		return nil, fmt.Errorf("RAF preview %d+%d exceeds file size %d", offset, length, info.Size())
	}

	data := make([]byte, length)
	if _, err := f.ReadAt(data, int64(offset)); err != nil {
		return nil, err
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("RAF preview is not a JPEG stream")
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %s", path)
	}
	return data, nil
}
