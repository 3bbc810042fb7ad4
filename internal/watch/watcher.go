// Package watch bridges filesystem notifications into the ingestion path:
// readiness probing, record classification, and pair registration.
//
// One goroutine drains the notification channel and processes each event
// fully (including the readiness wait) before taking the next, so event
// handling needs no locking of its own; the pairing registry's mutex is
// the only shared-state guard. Notifications back up in fsnotify's channel
// during a readiness wait, which is acceptable at this system's delivery
// rates (a handful of files per treatment session).
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/krm/centroidd/internal/dicom"
	"github.com/krm/centroidd/internal/pair"
	"github.com/krm/centroidd/internal/probe"
)

// Config wires a Watcher.
type Config struct {
	// Dir is the watched directory (non-recursive).
	Dir       string
	Probe     *probe.Probe
	Extractor dicom.Extractor
	Registry  *pair.Registry
}

// Watcher subscribes to create/write events on a directory and feeds each
// through probe -> classify -> register. A single bad event is logged and
// dropped; only failure to establish the watch itself is fatal.
type Watcher struct {
	dir       string
	probe     *probe.Probe
	extractor dicom.Extractor
	registry  *pair.Registry
}

// New validates the configuration and creates a Watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	if cfg.Probe == nil {
		return nil, errors.New("watch: probe is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("watch: extractor is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("watch: registry is required")
	}
	return &Watcher{
		dir:       cfg.Dir,
		probe:     cfg.Probe,
		extractor: cfg.Extractor,
		registry:  cfg.Registry,
	}, nil
}

// Run establishes the watch and drains events until ctx is cancelled.
// Returns a non-nil error only when the watch cannot be established or
// after cancellation (ctx.Err()). Any in-flight pair completion finishes
// before Run returns, since completions run synchronously on this
// goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	slog.Info("watching directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher stopping: context cancelled")
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				slog.Info("watcher stopping: event channel closed")
				return nil
			}
			w.handleEvent(ctx, ev)

		case err, ok := <-fsw.Errors:
			if !ok {
				slog.Info("watcher stopping: error channel closed")
				return nil
			}
			// Backend hiccups (overflow, transient inotify errors)
			// are not fatal; the next event re-enters the path.
			slog.Error("filesystem watch error", "error", err)
		}
	}
}

// handleEvent runs one notification through the ingestion path. All
// failures are logged and dropped without registry mutation; duplicate
// create+write notifications for one path are idempotent because
// registration overwrites by kind.
func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
		return
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return
	}
	slog.Debug("file event", "path", ev.Name, "op", ev.Op.String())

	if err := w.probe.AwaitStable(ctx, ev.Name); err != nil {
		switch {
		case errors.Is(err, probe.ErrTimedOut):
			// Dropped, not rescheduled: a settling producer emits a
			// later write notification that re-enters this path.
			slog.Warn("file never stabilized, dropping event", "path", ev.Name)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			slog.Debug("readiness wait cancelled", "path", ev.Name)
		default:
			slog.Error("readiness probe error", "path", ev.Name, "error", err)
		}
		return
	}

	rec, err := w.extractor.Parse(ev.Name)
	if err != nil {
		slog.Warn("unparseable file, dropping event", "path", ev.Name, "error", err)
		return
	}
	if rec.Kind == dicom.KindUnknown {
		slog.Debug("ignoring record of unhandled kind", "path", ev.Name)
		return
	}

	slog.Info("record classified",
		"path", ev.Name,
		"kind", rec.Kind.String(),
		"patient_id", rec.PatientID,
	)
	w.registry.RegisterHalf(rec.Kind, pair.Half{Path: ev.Name, PatientID: rec.PatientID})
}
