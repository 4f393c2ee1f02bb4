package aiscoring

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Prompt asks the model for the six score fields as bare JSON
const Prompt = "Analyze this photograph for technical and aesthetic quality.\n" +
	"Return ONLY valid JSON with these fields:\n" +
	"- sharpness: 0.0-1.0 (focus quality, 0=very blurry, 1=tack sharp)\n" +
	"- exposure: 0.0-1.0 (brightness correctness, 0=very dark/bright, 1=perfect)\n" +
	"- face_quality: 0.0-1.0 (face/eyes quality if faces present, 0.7 if no faces)\n" +
	"- face_count: integer (number of human faces)\n" +
	"- eyes_closed: true/false (are ALL eyes in the photo closed)\n" +
	"- composition: 0.0-1.0 (framing, balance, visual appeal)\n"

// Values used for fields missing from an otherwise valid answer
const (
	DefaultSharpness   = 0.5
	DefaultExposure    = 0.5
	DefaultFaceQuality = 0.7
	DefaultComposition = 0.5
)

// Assessment is the model's verdict for one photo
type Assessment struct {
	Sharpness   float64
	Exposure    float64
	FaceQuality float64
	FaceCount   int
	EyesClosed  bool
	Composition float64
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")

// ParseResponse extracts an Assessment from free-form model output. It
// accepts a bare object, an object inside a markdown fence, or an object
// surrounded by prose. Missing fields get the neutral defaults; ok is false
// when no JSON object could be found.
func ParseResponse(text string) (Assessment, bool) {
	obj, ok := extractObject(text)
	if !ok {
		return Assessment{}, false
	}

	return Assessment{
		Sharpness:   floatField(obj, "sharpness", DefaultSharpness),
		Exposure:    floatField(obj, "exposure", DefaultExposure),
		FaceQuality: floatField(obj, "face_quality", DefaultFaceQuality),
		FaceCount:   int(floatField(obj, "face_count", 0)),
		EyesClosed:  boolField(obj, "eyes_closed", false),
		Composition: floatField(obj, "composition", DefaultComposition),
	}, true
}

func extractObject(text string) (map[string]any, bool) {
	cleaned := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil && obj != nil {
		return obj, true
	}

	// widest brace span first, then the first object that decodes on its own
	first := strings.IndexByte(cleaned, '{')
	last := strings.LastIndexByte(cleaned, '}')
	if first < 0 || last <= first {
		return nil, false
	}
	if err := json.Unmarshal([]byte(cleaned[first:last+1]), &obj); err == nil && obj != nil {
		return obj, true
	}

	for i := first; i >= 0 && i < len(cleaned); {
		dec := json.NewDecoder(strings.NewReader(cleaned[i:]))
		var candidate map[string]any
		if err := dec.Decode(&candidate); err == nil && candidate != nil {
			return candidate, true
		}
		next := strings.IndexByte(cleaned[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}

	return nil, false
}

func floatField(obj map[string]any, key string, def float64) float64 {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case float64:
		return x
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f
		}
	}
	return def
}

func boolField(obj map[string]any, key string, def bool) bool {
	v, ok := obj[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(x))); err == nil {
			return b
		}
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "yes":
			return true
		case "no":
			return false
		}
	}
	return def
}
