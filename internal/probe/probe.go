// Package probe decides when a watched file is safe to read.
//
// Producers write DICOM exports over several seconds with no completion
// signal, so the only readiness evidence available is indirect: the file's
// size has stopped changing and the file can be opened. The probe polls for
// both under a hard deadline.
package probe

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrTimedOut is returned when a file never stabilized before the deadline.
var ErrTimedOut = errors.New("file did not stabilize before deadline")

// Config tunes the stability poll loop.
type Config struct {
	// Timeout bounds the total wait for one file.
	Timeout time.Duration
	// Interval is the delay between samples.
	Interval time.Duration
	// StableSamples is the number of consecutive unchanged-size samples
	// required before the file is considered stable.
	StableSamples int
}

// DefaultConfig matches the producer's observed write cadence: exports
// settle well inside 30s, and two unchanged half-second samples have been
// sufficient to avoid partial reads.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		Interval:      500 * time.Millisecond,
		StableSamples: 2,
	}
}

// clock abstracts time so tests can drive the loop without real sleeps.
type clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Probe reports when a file has stopped growing and is openable.
//
// A Probe is stateless between calls and safe for concurrent use.
type Probe struct {
	cfg Config
	clk clock

	// sample hooks, replaced in tests
	statSize  func(path string) (int64, error)
	checkOpen func(path string) error
}

// New creates a Probe with OS-backed sampling.
func New(cfg Config) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.StableSamples <= 0 {
		cfg.StableSamples = DefaultConfig().StableSamples
	}
	return &Probe{
		cfg:       cfg,
		clk:       realClock{},
		statSize:  osStatSize,
		checkOpen: osCheckOpen,
	}
}

// AwaitStable blocks until path is stable, the deadline passes, or ctx is
// cancelled.
//
// Each poll samples the file size and verifies the file opens for reading.
// An unchanged size increments a consecutive-stable counter; any I/O error
// (not found, permission denied, writer holding the file) or size change
// resets the counter without aborting the loop. Returns nil once the
// counter reaches StableSamples, ErrTimedOut when the deadline passes
// first, or ctx.Err() on cancellation.
//
// AwaitStable never modifies the probed file; it only opens transient
// read handles.
func (p *Probe) AwaitStable(ctx context.Context, path string) error {
	deadline := p.clk.Now().Add(p.cfg.Timeout)

	var (
		prevSize int64 = -1
		stable   int
	)

	for {
		size, err := p.statSize(path)
		if err == nil {
			err = p.checkOpen(path)
		}

		switch {
		case err != nil:
			// Still being written, moved, or briefly locked. Keep
			// waiting; the deadline is the only abort.
			prevSize = -1
			stable = 0
		case prevSize >= 0 && size == prevSize:
			stable++
			if stable >= p.cfg.StableSamples {
				return nil
			}
		default:
			stable = 0
			prevSize = size
		}

		if !p.clk.Now().Add(p.cfg.Interval).Before(deadline) {
			return ErrTimedOut
		}
		if err := p.clk.Sleep(ctx, p.cfg.Interval); err != nil {
			return err
		}
	}
}

func osStatSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, errors.New("path is a directory")
	}
	return info.Size(), nil
}

// osCheckOpen verifies the writer is not holding the file exclusively.
// Opening and immediately closing is the cheapest portable liveness check.
func osCheckOpen(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
