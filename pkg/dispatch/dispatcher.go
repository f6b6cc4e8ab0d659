// Package dispatch runs the background model calls for accepted uploads.
//
// Accepted records are queued and served by a fixed pool of workers. Each job
// makes exactly one model call and always ends by writing a terminal record
// (complete or failed_fallback) into the store; no job can leave a record in
// the processing state.
package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nutrivision/models"
	"nutrivision/pkg/normalize"
	"nutrivision/pkg/oracle"
	"nutrivision/pkg/store"
)

var (
	// ErrQueueFull is returned by Submit when every worker is busy and the queue is full.
	ErrQueueFull = errors.New("dispatch queue full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("dispatcher closed")
)

// Analyzer is the model client.
type Analyzer interface {
	Analyze(ctx context.Context, req oracle.Request) (string, error)
}

// ImageLoader reads the stored upload for the request.
type ImageLoader interface {
	Load(path string) (oracle.Image, error)
}

// LabelReader optionally extracts label text used as a prompt hint.
type LabelReader interface {
	ReadLabel(ctx context.Context, path string) (string, error)
}

// Job is one accepted upload waiting for analysis.
type Job struct {
	Record    models.UploadRecord
	ImagePath string
}

// Config holds the dispatcher's collaborators and limits.
type Config struct {
	Analyzer  Analyzer
	Images    ImageLoader
	Labels    LabelReader // nil disables the label hint
	Store     store.Writer
	Workers   int
	QueueSize int
	Now       func() time.Time
}

// Dispatcher owns the worker pool.
type Dispatcher struct {
	cfg    Config
	jobs   chan Job
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New starts cfg.Workers workers. Call Shutdown to stop them.
func New(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:    cfg,
		jobs:   make(chan Job, cfg.QueueSize),
		group:  new(errgroup.Group),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.group.Go(func() error {
			for job := range d.jobs {
				d.process(job)
			}
			return nil
		})
	}
	go func() {
		_ = d.group.Wait()
		close(d.done)
	}()
	return d
}

// Submit hands a job to the pool without blocking. When the job cannot be
// queued the record is resolved to failed_fallback right away and the reason
// is returned.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.fail(job, ErrClosed)
		return ErrClosed
	}
	select {
	case d.jobs <- job:
		return nil
	default:
		d.fail(job, ErrQueueFull)
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued and running ones. If ctx
// ends first, in-flight model calls are cancelled so the remaining jobs
// resolve to failed_fallback, and ctx.Err() is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		log.Printf("WARN dispatcher grace period over, abandoning in-flight analyses")
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) process(job Job) {
	started := d.cfg.Now()
	id := job.Record.ID
	analysis, err := d.analyze(job)
	elapsed := d.cfg.Now().Sub(started).Round(time.Millisecond)
	if err != nil {
		log.Printf("LLM analysis failed for %s after %s, falling back: %v", id, elapsed, err)
		d.fail(job, err)
		return
	}
	rec, err := job.Record.Complete(analysis, d.cfg.Now())
	if err != nil {
		log.Printf("WARN record %s not updated: %v", id, err)
		return
	}
	d.cfg.Store.Write(rec)
	log.Printf("analysis %s complete in %s: %s (confidence %.2f)", id, elapsed, analysis.FoodType, analysis.Confidence)
}

func (d *Dispatcher) analyze(job Job) (models.AnalysisResult, error) {
	if err := d.ctx.Err(); err != nil {
		return models.AnalysisResult{}, err
	}
	img, err := d.cfg.Images.Load(job.ImagePath)
	if err != nil {
		return models.AnalysisResult{}, err
	}
	var label string
	if d.cfg.Labels != nil {
		if text, err := d.cfg.Labels.ReadLabel(d.ctx, job.ImagePath); err == nil {
			label = text
		}
	}
	raw, err := d.cfg.Analyzer.Analyze(d.ctx, oracle.Request{
		Image:     img,
		Weight:    job.Record.Weight,
		LabelText: label,
	})
	if err != nil {
		return models.AnalysisResult{}, err
	}
	return normalize.Normalize(raw)
}

func (d *Dispatcher) fail(job Job, cause error) {
	rec, err := job.Record.Fail(d.cfg.Now())
	if err != nil {
		log.Printf("WARN record %s not updated: %v", job.Record.ID, err)
		return
	}
	d.cfg.Store.Write(rec)
	if errors.Is(cause, ErrQueueFull) || errors.Is(cause, ErrClosed) {
		log.Printf("WARN analysis %s not scheduled: %v", job.Record.ID, cause)
	}
}
