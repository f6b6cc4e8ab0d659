package poller

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"

	"nutrivision/models"
)

type fakeFetcher struct {
	recs []*models.UploadRecord
	errs []error
	i    int
}

func (f *fakeFetcher) Latest(ctx context.Context) (*models.UploadRecord, error) {
	i := f.i
	f.i++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.recs) {
		return f.recs[i], nil
	}
	return nil, nil
}

type recorder struct{ calls []string }

func (r *recorder) Waiting() { r.calls = append(r.calls, "waiting") }
func (r *recorder) Analyzing(models.UploadRecord) { r.calls = append(r.calls, "analyzing") }
func (r *recorder) Results(models.UploadRecord) { r.calls = append(r.calls, "results") }
func (r *recorder) ConnectionError(error, time.Time) { r.calls = append(r.calls, "error") }

func TestPollRendersOnlyChanges(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	processing := models.NewProcessing(snowflake.ID(7), models.ImageMetadata{}, 250, t0)
	done, _ := processing.Complete(models.FallbackAnalysis(), t0.Add(time.Second))
	next := models.NewProcessing(snowflake.ID(8), models.ImageMetadata{}, 100, t0.Add(2*time.Second))

	f := &fakeFetcher{
		recs: []*models.UploadRecord{nil, nil, &processing, &processing, &done, &done, nil, &next, &next},
		errs: []error{nil, nil, nil, nil, nil, errors.New("refused"), nil, nil, nil},
	}
	r := &recorder{}
	p := &Poller{Fetcher: f, Renderer: r}
	for range f.recs {
		p.Poll(context.Background())
	}
	want := "waiting,analyzing,results,error,waiting,analyzing"
	if got := strings.Join(r.calls, ","); got != want {
		t.Fatalf("render sequence %q want %q", got, want)
	}
}

func TestRunPollsImmediately(t *testing.T) {
	f := &fakeFetcher{}
	r := &recorder{}
	p := &Poller{Fetcher: f, Renderer: r, Interval: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("unexpected run error %v", err)
	}
	if f.i != 1 || len(r.calls) != 1 || r.calls[0] != "waiting" {
		t.Fatalf("expected exactly one immediate poll, got %d fetches %v", f.i, r.calls)
	}
}

func TestHTTPFetcher(t *testing.T) {
	body := `{"success":false,"error":"No analysis data available"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/latest-analysis" || r.URL.Query().Get("t") == "" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer srv.Close()
	f := HTTPFetcher{BaseURL: srv.URL + "/"}

	rec, err := f.Latest(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("expected empty result, got %v %v", rec, err)
	}

	body = `{"success":true,"data":{"id":"42","weight":250,"status":"complete","timestamp":"2025-01-01T12:00:00Z",` +
		`"image":{"filename":"a.jpg","originalName":"lunch.jpg","size":10,"path":"/uploads/a.jpg"},` +
		`"analysis":{"foodType":"Rice","confidence":0.9,"nutrition":{"calories":300,"GI":70},"healthSuggestions":[],"dishSuggestions":[]}}}`
	rec, err = f.Latest(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("expected record, got %v %v", rec, err)
	}
	if rec.ID != 42 || rec.Analysis.Nutrition.GI != 70 || rec.Status != models.StatusComplete {
		t.Fatalf("decoded record mismatch: %+v", rec)
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()
	if _, err := (HTTPFetcher{BaseURL: srv.URL}).Latest(context.Background()); err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expected status error got %v", err)
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := TextRenderer{W: &buf}
	rec := models.NewProcessing(snowflake.ID(1), models.ImageMetadata{OriginalName: "plate.jpg", Path: "/uploads/x.jpg"}, 250, time.Now())
	done, _ := rec.Complete(models.AnalysisResult{
		FoodType:          "Nasi Goreng",
		Confidence:        0.85,
		Nutrition:         models.Nutrition{Calories: 410, Protein: 12, GI: 73},
		HealthSuggestions: []string{"Add vegetables"},
		DishSuggestions:   []string{},
	}, time.Now())
	r.Results(done)
	out := buf.String()
	for _, want := range []string{StatusComplete, "Nasi Goreng", "85.0%", "per 250g", "Calories", "410", "Add vegetables"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	buf.Reset()
	r.ConnectionError(errors.New("refused"), time.Now())
	if !strings.HasPrefix(buf.String(), StatusConnectionError) {
		t.Fatalf("unexpected error line %q", buf.String())
	}
}
