// Package store holds the most recent upload record in a single in-memory slot.
package store

import (
	"sync/atomic"

	"nutrivision/models"
)

// Writer publishes a record into the slot.
type Writer interface {
	Write(rec models.UploadRecord)
}

// Reader returns the current slot value.
type Reader interface {
	Read() (models.UploadRecord, bool)
}

// Slot is the process-wide "latest record". It starts empty and each Write
// replaces the whole record with one pointer swap, so readers never see a mix
// of two records. Last write wins.
type Slot struct {
	latest atomic.Pointer[models.UploadRecord]
}

// New returns an empty slot.
func New() *Slot {
	return &Slot{}
}

func (s *Slot) Write(rec models.UploadRecord) {
	rec.Analysis.HealthSuggestions = cloneStrings(rec.Analysis.HealthSuggestions)
	rec.Analysis.DishSuggestions = cloneStrings(rec.Analysis.DishSuggestions)
	s.latest.Store(&rec)
}

// Read returns a copy of the stored record, or false if nothing was written yet.
func (s *Slot) Read() (models.UploadRecord, bool) {
	p := s.latest.Load()
	if p == nil {
		return models.UploadRecord{}, false
	}
	return *p, true
}

// the slot owns its slices; callers may keep mutating theirs
func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
