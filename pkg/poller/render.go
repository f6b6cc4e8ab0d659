package poller

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"nutrivision/models"
)

// Renderer displays what the poller observes.
type Renderer interface {
	Waiting()
	Analyzing(rec models.UploadRecord)
	Results(rec models.UploadRecord)
	ConnectionError(err error, at time.Time)
}

// Status lines shown to the operator.
const (
	StatusWaiting         = "System Ready - Waiting for Equipment"
	StatusAnalyzing       = "Analyzing..."
	StatusComplete        = "Analysis Complete"
	StatusConnectionError = "Connection Error - Check Server"
)

// TextRenderer writes plain text to W, suitable for a terminal.
type TextRenderer struct {
	W io.Writer
}

func (r TextRenderer) Waiting() {
	fmt.Fprintf(r.W, "%s\n", StatusWaiting)
}

func (r TextRenderer) Analyzing(rec models.UploadRecord) {
	fmt.Fprintf(r.W, "%s (started %s)\n", StatusAnalyzing, rec.Timestamp.Local().Format(time.DateTime))
	r.header(rec)
	fmt.Fprintf(r.W, "Food Type: %s\n\n", rec.Analysis.FoodType)
}

func (r TextRenderer) Results(rec models.UploadRecord) {
	fmt.Fprintf(r.W, "%s (last analysis %s)\n", StatusComplete, rec.Timestamp.Local().Format(time.DateTime))
	r.header(rec)
	a := rec.Analysis
	fmt.Fprintf(r.W, "Food Type: %s\nConfidence: %.1f%%\n", a.FoodType, a.Confidence*100)
	if rec.Status == models.StatusFailedFallback {
		fmt.Fprintln(r.W, "(fallback values)")
	}
	fmt.Fprintf(r.W, "Nutrition (per %sg):\n", formatWeight(rec.Weight))
	tw := tabwriter.NewWriter(r.W, 0, 0, 2, ' ', 0)
	n := a.Nutrition
	fmt.Fprintf(tw, "  Calories\t%d\n", n.Calories)
	fmt.Fprintf(tw, "  Protein\t%dg\n", n.Protein)
	fmt.Fprintf(tw, "  Carbs\t%dg\n", n.Carbs)
	fmt.Fprintf(tw, "  Fat\t%dg\n", n.Fat)
	fmt.Fprintf(tw, "  Fiber\t%dg\n", n.Fiber)
	fmt.Fprintf(tw, "  GI\t%d\n", n.GI)
	fmt.Fprintf(tw, "  GL\t%d\n", n.GL)
	tw.Flush()
	list(r.W, "Health Suggestions", a.HealthSuggestions)
	list(r.W, "Dish Suggestions", a.DishSuggestions)
	fmt.Fprintln(r.W)
}

func (r TextRenderer) ConnectionError(err error, at time.Time) {
	fmt.Fprintf(r.W, "%s (last error %s: %v)\n", StatusConnectionError, at.Local().Format(time.TimeOnly), err)
}

func (r TextRenderer) header(rec models.UploadRecord) {
	fmt.Fprintf(r.W, "Weight: %sg\nImage: %s (%s)\n", formatWeight(rec.Weight), rec.Image.OriginalName, rec.Image.Path)
}

func list(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, s := range items {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func formatWeight(w float64) string {
	return fmt.Sprintf("%g", w)
}
