package models

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is the lifecycle state of an UploadRecord.
type Status string

const (
	StatusProcessing     Status = "processing"
	StatusComplete       Status = "complete"
	StatusFailedFallback Status = "failed_fallback"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailedFallback
}

// ErrAlreadyTerminal is returned when a finished record is asked to transition again.
var ErrAlreadyTerminal = errors.New("record already in a terminal state")

// ImageMetadata describes the stored copy of an uploaded image.
type ImageMetadata struct {
	Filename     string `json:"filename"`     // name on disk
	OriginalName string `json:"originalName"` // name sent by the client
	Size         int64  `json:"size"`
	Path         string `json:"path"` // public URL, e.g. /uploads/foodImage-....jpg
}

// UploadRecord represents one upload-through-analysis cycle.
type UploadRecord struct {
	ID        snowflake.ID   `json:"id"`
	Image     ImageMetadata  `json:"image"`
	Weight    float64        `json:"weight"` // grams
	Status    Status         `json:"status"`
	Analysis  AnalysisResult `json:"analysis"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewProcessing builds the initial record handed back to the uploader.
func NewProcessing(id snowflake.ID, img ImageMetadata, weight float64, at time.Time) UploadRecord {
	return UploadRecord{
		ID:        id,
		Image:     img,
		Weight:    weight,
		Status:    StatusProcessing,
		Analysis:  PlaceholderAnalysis(),
		Timestamp: at,
	}
}

// Complete returns a copy of r carrying the analysis and a fresh timestamp.
func (r UploadRecord) Complete(a AnalysisResult, at time.Time) (UploadRecord, error) {
	return r.transition(StatusComplete, a, at)
}

// Fail returns a copy of r holding the fallback analysis.
func (r UploadRecord) Fail(at time.Time) (UploadRecord, error) {
	return r.transition(StatusFailedFallback, FallbackAnalysis(), at)
}

func (r UploadRecord) transition(s Status, a AnalysisResult, at time.Time) (UploadRecord, error) {
	if r.Status.Terminal() {
		return r, ErrAlreadyTerminal
	}
	next := r
	next.Status = s
	next.Analysis = a
	next.Timestamp = at
	return next, nil
}
