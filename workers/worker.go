package workers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"optionchain/metrics"
	"optionchain/models"
	"optionchain/pipeline"
)

type Worker interface {
	Start(ctx context.Context) error
	Cancel()
	GetID() string
	Status() Status
}

// Sink receives every snapshot the worker produces, failed cycles included.
type Sink interface {
	Publish(snap models.Snapshot)
}

type SinkFunc func(models.Snapshot)

func (f SinkFunc) Publish(snap models.Snapshot) { f(snap) }

type Status struct {
	ID        string    `json:"id"`
	Running   bool      `json:"running"`
	Cycles    int       `json:"cycles"`
	Failures  int       `json:"failures"`
	LastCycle string    `json:"lastCycle,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	NextRun   time.Time `json:"nextRun,omitempty"`
}

// RefreshWorker re-runs the pipeline after each completed render. With
// auto-refresh on it sleeps for the configured interval; otherwise it waits
// for a settings change. A settings change always cuts the wait short.
type RefreshWorker struct {
	id       string
	pipeline *pipeline.Pipeline
	sinks    []Sink
	metrics  *metrics.Registry
	after    func(time.Duration) <-chan time.Time

	mu     sync.Mutex
	cancel func()
	status Status
}

func NewRefreshWorker(p *pipeline.Pipeline, m *metrics.Registry, sinks ...Sink) *RefreshWorker {
	id := uuid.NewString()
	return &RefreshWorker{
		id:       id,
		pipeline: p,
		sinks:    sinks,
		metrics:  m,
		after:    time.After,
		status:   Status{ID: id},
	}
}

func (w *RefreshWorker) GetID() string {
	return w.id
}

func (w *RefreshWorker) Cancel() {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (w *RefreshWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Start blocks until ctx is done or the worker is cancelled.
func (w *RefreshWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.mu.Lock()
	w.cancel = cancel
	w.status.Running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.status.Running = false
		w.status.NextRun = time.Time{}
		w.mu.Unlock()
	}()

	log.Info().Str("worker", w.id).Msg("refresh worker started")
	defer log.Info().Str("worker", w.id).Msg("refresh worker stopped")

	for {
		w.RunCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		settings := w.pipeline.Settings()
		var tick <-chan time.Time
		if settings.AutoRefresh {
			tick = w.after(settings.Interval)
			w.setNextRun(time.Now().Add(settings.Interval))
		} else {
			w.setNextRun(time.Time{})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		case <-w.pipeline.Changed():
			log.Debug().Str("worker", w.id).Msg("settings changed, refreshing now")
		}
	}
}

// RunCycle executes one refresh and hands the snapshot to every sink.
func (w *RefreshWorker) RunCycle(ctx context.Context) models.Snapshot {
	cycleID := uuid.NewString()
	settings := w.pipeline.Settings()
	start := time.Now()

	snap, err := w.pipeline.Refresh(ctx, settings)
	snap.Meta.CycleID = cycleID
	elapsed := time.Since(start)

	result := "ok"
	if err != nil {
		result = pipeline.ErrorKind(err)
	}
	w.metrics.ObserveCycle(result, elapsed, len(snap.Data.Rows), snap.Meta.Underlying)

	w.mu.Lock()
	w.status.Cycles++
	w.status.LastCycle = cycleID
	w.status.LastRun = start
	w.status.LastError = ""
	if err != nil {
		w.status.Failures++
		w.status.LastError = err.Error()
	}
	w.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().
			Err(err).
			Str("cycle", cycleID).
			Str("kind", result).
			Str("expiry", snap.Meta.Expiry).
			Msg("refresh cycle failed")
	} else if err == nil {
		log.Info().
			Str("cycle", cycleID).
			Str("expiry", snap.Meta.Expiry).
			Float64("underlying", snap.Meta.Underlying).
			Int("rows", len(snap.Data.Rows)).
			Dur("duration", elapsed).
			Msg("refresh cycle complete")
	}

	for _, s := range w.sinks {
		s.Publish(snap)
	}
	return snap
}

func (w *RefreshWorker) setNextRun(t time.Time) {
	w.mu.Lock()
	w.status.NextRun = t
	w.mu.Unlock()
}

// Manager tracks running workers by ID.
type Manager struct {
	mu      sync.Mutex
	workers map[string]Worker
	wg      sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{workers: make(map[string]Worker)}
}

// Add starts w in its own goroutine; it is forgotten once it returns.
func (m *Manager) Add(ctx context.Context, w Worker) {
	m.mu.Lock()
	m.workers[w.GetID()] = w
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Str("worker", w.GetID()).Msg("worker terminated")
		}
		m.mu.Lock()
		delete(m.workers, w.GetID())
		m.mu.Unlock()
	}()
}

func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	w, ok := m.workers[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("worker %s not found", id)
	}
	w.Cancel()
	return nil
}

func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	out := make([]Status, 0, len(m.workers))
	for _, w := range m.workers {
		out = append(out, w.Status())
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wait blocks until every started worker has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
