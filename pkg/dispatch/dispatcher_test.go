package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nutrivision/models"
	"nutrivision/pkg/oracle"
	"nutrivision/pkg/store"
)

type fakeImages struct{ err error }

func (f fakeImages) Load(path string) (oracle.Image, error) {
	if f.err != nil {
		return oracle.Image{}, f.err
	}
	return oracle.Image{MIMEType: "image/jpeg", Data: []byte("img")}, nil
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	reply   string
	err     error
	block   chan struct{}
	lastReq oracle.Request
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req oracle.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLabels struct{}

func (fakeLabels) ReadLabel(ctx context.Context, path string) (string, error) {
	return "Energy 120 kcal", nil
}

const goodReply = "```json\n{\"foodType\":\"banana\",\"confidence\":0.9,\"nutrition\":{\"calories\":105,\"protein\":1,\"carbs\":27,\"fat\":0,\"fiber\":3,\"GI\":51,\"GL\":13},\"healthSuggestions\":[\"Good pre-workout snack\"],\"dishSuggestions\":[\"Smoothie\"]}\n```"

func newRecord(id int64) models.UploadRecord {
	return models.NewProcessing(snowflakeID(id), models.ImageMetadata{Filename: "f.jpg"}, 120, time.Now())
}

// waitTerminal polls the slot like a client would.
func waitTerminal(t *testing.T, s *store.Slot, id int64) models.UploadRecord {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if rec, ok := s.Read(); ok && rec.ID.Int64() == id && rec.Status.Terminal() {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("record %d never reached a terminal state", id)
	return models.UploadRecord{}
}

func TestSubmitCompletes(t *testing.T) {
	slot := store.New()
	an := &fakeAnalyzer{reply: goodReply}
	d := New(Config{Analyzer: an, Images: fakeImages{}, Labels: fakeLabels{}, Store: slot, Workers: 2, QueueSize: 4})
	defer d.Shutdown(context.Background())

	rec := newRecord(1)
	slot.Write(rec)
	if err := d.Submit(Job{Record: rec, ImagePath: "f.jpg"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := waitTerminal(t, slot, 1)
	if got.Status != models.StatusComplete {
		t.Fatalf("expected complete got %s", got.Status)
	}
	if got.Analysis.FoodType != "banana" || got.Analysis.Nutrition.Calories != 105 || got.Weight != 120 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if an.callCount() != 1 {
		t.Fatalf("expected exactly one model call, got %d", an.callCount())
	}
	if an.lastReq.LabelText != "Energy 120 kcal" || an.lastReq.Weight != 120 {
		t.Fatalf("request missing hint or weight: %+v", an.lastReq)
	}
}

func TestUpstreamErrorFallsBack(t *testing.T) {
	slot := store.New()
	an := &fakeAnalyzer{err: &oracle.StatusError{Code: 500, Body: "boom"}}
	d := New(Config{Analyzer: an, Images: fakeImages{}, Store: slot, Workers: 1, QueueSize: 1})
	defer d.Shutdown(context.Background())

	_ = d.Submit(Job{Record: newRecord(2)})
	got := waitTerminal(t, slot, 2)
	if got.Status != models.StatusFailedFallback || got.Analysis.Confidence != 0.5 {
		t.Fatalf("expected fallback got %+v", got)
	}
	if got.Analysis.Nutrition != (models.Nutrition{}) || len(got.Analysis.HealthSuggestions) == 0 {
		t.Fatalf("fallback should be zeroed with a suggestion: %+v", got.Analysis)
	}
	if an.callCount() != 1 {
		t.Fatalf("no retries expected, got %d calls", an.callCount())
	}
}

func TestMalformedOutputFallsBack(t *testing.T) {
	for i, reply := range []string{"I think it is a sandwich.", `{"foodType": "sandwich"}`} {
		slot := store.New()
		d := New(Config{Analyzer: &fakeAnalyzer{reply: reply}, Images: fakeImages{}, Store: slot, Workers: 1, QueueSize: 1})
		id := int64(10 + i)
		_ = d.Submit(Job{Record: newRecord(id)})
		got := waitTerminal(t, slot, id)
		if got.Status != models.StatusFailedFallback {
			t.Fatalf("%q: expected fallback got %s", reply, got.Status)
		}
		_ = d.Shutdown(context.Background())
	}
}

func TestImageErrorFallsBack(t *testing.T) {
	slot := store.New()
	an := &fakeAnalyzer{reply: goodReply}
	d := New(Config{Analyzer: an, Images: fakeImages{err: errors.New("gone")}, Store: slot, Workers: 1, QueueSize: 1})
	defer d.Shutdown(context.Background())
	_ = d.Submit(Job{Record: newRecord(3)})
	if got := waitTerminal(t, slot, 3); got.Status != models.StatusFailedFallback {
		t.Fatalf("expected fallback got %s", got.Status)
	}
	if an.callCount() != 0 {
		t.Fatalf("model should not be called without an image")
	}
}

func TestQueueFullResolvesImmediately(t *testing.T) {
	slot := store.New()
	an := &fakeAnalyzer{reply: goodReply, block: make(chan struct{})}
	d := New(Config{Analyzer: an, Images: fakeImages{}, Store: slot, Workers: 1, QueueSize: 0})

	// unbuffered queue: keep offering until the worker picks one up and blocks
	deadline := time.Now().Add(2 * time.Second)
	for an.callCount() == 0 && time.Now().Before(deadline) {
		_ = d.Submit(Job{Record: newRecord(4)})
		time.Sleep(5 * time.Millisecond)
	}
	if err := d.Submit(Job{Record: newRecord(5)}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull got %v", err)
	}
	got, ok := slot.Read()
	if !ok || got.ID.Int64() != 5 || got.Status != models.StatusFailedFallback {
		t.Fatalf("rejected job should be resolved right away, got %+v", got)
	}
	close(an.block)
	_ = d.Shutdown(context.Background())
}

func TestSubmitAfterShutdown(t *testing.T) {
	slot := store.New()
	d := New(Config{Analyzer: &fakeAnalyzer{reply: goodReply}, Images: fakeImages{}, Store: slot})
	if err := d.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := d.Submit(Job{Record: newRecord(6)}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed got %v", err)
	}
	if got, _ := slot.Read(); got.Status != models.StatusFailedFallback {
		t.Fatalf("expected fallback for late job, got %s", got.Status)
	}
}

func TestShutdownGraceAbandonsInFlight(t *testing.T) {
	slot := store.New()
	an := &fakeAnalyzer{reply: goodReply, block: make(chan struct{})}
	d := New(Config{Analyzer: an, Images: fakeImages{}, Store: slot, Workers: 1, QueueSize: 1})
	_ = d.Submit(Job{Record: newRecord(7)})
	for an.callCount() == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v", err)
	}
	if got := waitTerminal(t, slot, 7); got.Status != models.StatusFailedFallback {
		t.Fatalf("abandoned job should fall back, got %s", got.Status)
	}
}
