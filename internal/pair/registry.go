// Package pair tracks half-formed structure/plan pairs and triggers
// processing when both halves are present.
//
// Pairing is by slot, not by patient identity: the registry holds at most
// one pending structure and one pending plan, and a new arrival of a kind
// already pending overwrites the stale half. This mirrors the upstream
// producer's one-case-at-a-time delivery; the pipeline's identity check is
// what rejects a mismatched pair. Keying by patient ID instead would
// harden interleaved-case delivery and is a deliberate non-change here
// (see DESIGN.md).
package pair

import (
	"log/slog"
	"sync"

	"github.com/krm/centroidd/internal/dicom"
)

// Half is one registered side of a pending pair.
type Half struct {
	Path      string
	PatientID string
}

// CompletionFunc processes a completed pair. It is invoked synchronously
// from RegisterHalf, after the slots have been reset, and outside the
// registry's critical section so a slow pipeline (or an operator prompt)
// never blocks registration.
type CompletionFunc func(structure, plan Half)

// Registry is the pairing state machine: Empty -> OneHalf -> Complete ->
// reset to Empty. The mutex is the single correctness-critical lock in the
// service; register-check-reset is atomic under it.
type Registry struct {
	mu         sync.Mutex
	structure  *Half
	plan       *Half
	onComplete CompletionFunc
}

// NewRegistry creates an empty registry. onComplete must be non-nil.
func NewRegistry(onComplete CompletionFunc) *Registry {
	return &Registry{onComplete: onComplete}
}

// RegisterHalf records a classified file. Registering a kind that is
// already pending overwrites it (last writer wins); duplicate filesystem
// notifications for the same path are therefore idempotent.
//
// When the write completes the pair, both slots are reset first and the
// completion callback runs before RegisterHalf returns. The reset is
// unconditional: a failing or panicking completion never leaves a
// poisoned pair behind, and events arriving during processing start a
// fresh pair. Unknown kinds are ignored.
func (r *Registry) RegisterHalf(kind dicom.Kind, half Half) {
	structure, plan, ok := r.commit(kind, half)
	if !ok {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("pair completion panicked",
				"structure_path", structure.Path,
				"plan_path", plan.Path,
				"panic", rec,
			)
		}
	}()
	r.onComplete(structure, plan)
}

// commit performs the atomic register-check-reset step and reports whether
// a completed pair was captured.
func (r *Registry) commit(kind dicom.Kind, half Half) (structure, plan Half, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case dicom.KindStructure:
		if r.structure != nil && r.structure.PatientID != half.PatientID {
			slog.Warn("pending structure overwritten by a different case",
				"stale_path", r.structure.Path,
				"stale_patient_id", r.structure.PatientID,
				"new_path", half.Path,
				"new_patient_id", half.PatientID,
			)
		}
		r.structure = &half
	case dicom.KindPlan:
		if r.plan != nil && r.plan.PatientID != half.PatientID {
			slog.Warn("pending plan overwritten by a different case",
				"stale_path", r.plan.Path,
				"stale_patient_id", r.plan.PatientID,
				"new_path", half.Path,
				"new_patient_id", half.PatientID,
			)
		}
		r.plan = &half
	default:
		slog.Warn("ignoring record of unknown kind", "path", half.Path)
		return Half{}, Half{}, false
	}

	if r.structure == nil || r.plan == nil {
		return Half{}, Half{}, false
	}

	structure, plan = *r.structure, *r.plan
	r.structure, r.plan = nil, nil
	return structure, plan, true
}

// Pending returns a snapshot of the currently registered halves. Intended
// for diagnostics and tests.
func (r *Registry) Pending() (structure, plan *Half) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.structure != nil {
		s := *r.structure
		structure = &s
	}
	if r.plan != nil {
		p := *r.plan
		plan = &p
	}
	return structure, plan
}
