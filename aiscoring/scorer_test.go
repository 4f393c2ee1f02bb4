package aiscoring

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"photocull/config"
	"photocull/types"
)

type fakeClient struct {
	response string
	err      error
	delay    time.Duration

	mu       sync.Mutex
	payloads [][]byte

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeClient) Chat(_ context.Context, _ string, images [][]byte) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.payloads = append(f.payloads, images...)
	f.mu.Unlock()

	time.Sleep(f.delay)
	return f.response, f.err
}

func newRecord() types.PhotoRecord {
	return types.NewPhotoRecord("/photos/DSCF0007.JPG", "/photos/DSCF0007.JPG", "", "DSCF0007")
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestScoreAppliesAssessment(t *testing.T) {
	t.Parallel()

	client := &fakeClient{response: "```json\n{\"sharpness\": 0.6, \"exposure\": 0.9, \"face_quality\": 1.0, \"face_count\": 2, \"eyes_closed\": true, \"composition\": 0.8}\n```"}
	scorer := NewScorer(client, config.Default().AI)

	rec := newRecord()
	if err := scorer.Score(context.Background(), &rec, []byte("jpeg")); err != nil {
		t.Fatalf("Score() error: %v", err)
	}

	if rec.SharpnessScore != 0.6 || rec.ExposureScore != 0.9 || rec.FaceScore != 1.0 {
		t.Errorf("scores = %v/%v/%v, want 0.6/0.9/1.0", rec.SharpnessScore, rec.ExposureScore, rec.FaceScore)
	}
	if rec.FaceCount != 2 || !rec.AllEyesClosed || rec.AIScore != 0.8 {
		t.Errorf("faces=%d closed=%v ai=%v", rec.FaceCount, rec.AllEyesClosed, rec.AIScore)
	}
	if rec.Sharpness != 600 {
		t.Errorf("Sharpness = %v, want 600", rec.Sharpness)
	}
}

func TestScoreFailureLeavesRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"transport error", &fakeClient{err: errors.New("connection refused")}},
		{"unparseable answer", &fakeClient{response: "sorry, no"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scorer := NewScorer(tt.client, config.Default().AI)
			rec := newRecord()
			want := rec

			if err := scorer.Score(context.Background(), &rec, []byte("jpeg")); err == nil {
				t.Fatal("Score() = nil error")
			}
			if rec != want {
				t.Errorf("record modified on failure: %+v", rec)
			}
		})
	}
}

func TestScorerBoundsConcurrency(t *testing.T) {
	t.Parallel()

	client := &fakeClient{response: "{}", delay: 20 * time.Millisecond}
	cfg := config.Default().AI
	cfg.MaxConcurrent = 1
	scorer := NewScorer(client, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := scorer.Assess(context.Background(), []byte("jpeg")); err != nil {
				t.Errorf("Assess() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := client.maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent calls = %d, want 1", got)
	}
}

func TestAssessCancelled(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(&fakeClient{response: "{}"}, config.Default().AI)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// fill the only slot so Acquire has to wait on the cancelled context
	if err := scorer.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	defer scorer.sem.Release(1)

	if _, err := scorer.Assess(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Assess() error = %v, want context.Canceled", err)
	}
}

func TestDownscale(t *testing.T) {
	t.Parallel()

	big := encodeTestJPEG(t, 200, 100)
	out := Downscale(big, 50)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("downscaled payload does not decode: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Errorf("downscaled size = %dx%d, want 50x25", cfg.Width, cfg.Height)
	}

	small := encodeTestJPEG(t, 40, 30)
	if got := Downscale(small, 50); !bytes.Equal(got, small) {
		t.Error("image within the limit should be returned unchanged")
	}

	garbage := []byte("not an image")
	if got := Downscale(garbage, 50); !bytes.Equal(got, garbage) {
		t.Error("undecodable payload should be returned unchanged")
	}
}

func TestFitWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		w, h, edge, wantW, wantH int
	}{
		{6000, 4000, 1600, 1600, 1066},
		{4000, 6000, 1600, 1066, 1600},
		{5000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitWithin(tt.w, tt.h, tt.edge)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.edge, w, h, tt.wantW, tt.wantH)
		}
	}
}
