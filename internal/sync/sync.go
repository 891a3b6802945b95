// Package sync exports the published graph as JSONL and pushes it to
// external destinations on a schedule.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/lexigraph/internal/model"
)

// Destination stores a complete JSONL export, replacing any previous one.
type Destination interface {
	Name() string
	Write(ctx context.Context, data []byte) error
}

// Scheduler pushes every newly published graph version to its
// destinations. A version is retried on the next tick until all
// destinations accept it.
type Scheduler struct {
	src    Source
	dests  []Destination
	every  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	written string

	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(src Source, dests []Destination, every time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{src: src, dests: dests, every: every, logger: logger}
}

// Start syncs once immediately and then on every tick until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		t := time.NewTicker(s.every)
		defer t.Stop()
		for {
			if _, err := s.SyncNow(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("export sync failed", "err", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight sync. It is a no-op on a
// scheduler that was never started.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// SyncNow writes the published graph to every destination in parallel.
// It reports false without error when the graph is empty or its version
// was already written everywhere. Failed destinations are joined into the
// returned error.
func (s *Scheduler) SyncNow(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	export, err := s.src.Export()
	if errors.Is(err, model.ErrEmptyGraph) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	version := export.Snapshot.Version
	if version == s.written {
		return false, nil
	}

	var buf bytes.Buffer
	if err := writeJSONL(export, &buf); err != nil {
		return false, err
	}
	data := buf.Bytes()

	errs := make([]error, len(s.dests))
	var g errgroup.Group
	for i, d := range s.dests {
		g.Go(func() error {
			if err := d.Write(ctx, data); err != nil {
				errs[i] = fmt.Errorf("%s: %w", d.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := errors.Join(errs...); err != nil {
		return true, err
	}

	s.written = version
	s.logger.Info("export synced", "graph_version", version, "destinations", len(s.dests), "bytes", len(data))
	return true, nil
}
