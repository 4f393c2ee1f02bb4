// Package xmp writes star ratings as XMP sidecar files that photo catalog
// software picks up next to the original image.
package xmp

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Namespaces of the sidecar document
const (
	NSMeta = "adobe:ns:meta/"
	NSRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSXMP  = "http://ns.adobe.com/xap/1.0/"
)

// Extension of sidecar files
const Extension = ".xmp"

type xmpMeta struct {
	XMLName xml.Name `xml:"x:xmpmeta"`
	NSX     string   `xml:"xmlns:x,attr"`
	RDF     rdfRoot  `xml:"rdf:RDF"`
}

type rdfRoot struct {
	NSRDF       string      `xml:"xmlns:rdf,attr"`
	Description description `xml:"rdf:Description"`
}

type description struct {
	About  string `xml:"rdf:about,attr"`
	NSXMP  string `xml:"xmlns:xmp,attr"`
	Rating string `xml:"xmp:Rating,attr"`
}

// Clamp limits rating to the 1..5 star range
func Clamp(rating int) int {
	return max(1, min(5, rating))
}

// Generate renders the sidecar document for rating
func Generate(rating int) []byte {
	doc := xmpMeta{
		NSX: NSMeta,
		RDF: rdfRoot{
			NSRDF: NSRDF,
			Description: description{
				About:  "",
				NSXMP:  NSXMP,
				Rating: strconv.Itoa(Clamp(rating)),
			},
		},
	}

	// fixed struct of string attributes, marshalling cannot fail
	body, _ := xml.MarshalIndent(doc, "", "  ")

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes()
}

// SidecarPath returns <dir>/<stem>.xmp for photoPath
func SidecarPath(photoPath string) string {
	base := filepath.Base(photoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(photoPath), stem+Extension)
}

// Write stores the sidecar for photoPath and returns its path. An existing
// sidecar is replaced atomically. With dryRun nothing is written.
func Write(photoPath string, rating int, dryRun bool) (string, error) {
	path := SidecarPath(photoPath)
	if dryRun {
		return path, nil
	}

	if err := writeAtomic(path, Generate(rating)); err != nil {
		return path, fmt.Errorf("failed to write sidecar %s: %w", path, err)
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
