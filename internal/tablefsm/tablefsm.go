// Package tablefsm implements the Table State Machine (C2): the
// validated transition table of spec.md §4.2. It is pure — no I/O, no
// persistence — so the State Store (C1) can unit-test and apply it
// without a database.
package tablefsm

import (
	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

const component = "tablefsm"

// transitions is the §4.2 transition table. A (previous, next) pair
// absent from this map is rejected as InvalidTransition.
var transitions = map[models.TableState]map[models.TableState]bool{
	models.TableClean: {
		models.TableOccupied:    true,
		models.TableReserved:    true,
		models.TableUnavailable: true,
	},
	models.TableOccupied: {
		models.TableDirty: true,
	},
	models.TableDirty: {
		models.TableClean: true,
	},
	models.TableReserved: {
		models.TableOccupied: true,
		models.TableClean:    true,
	},
	models.TableUnavailable: {
		models.TableClean: true,
	},
}

// Request describes a proposed transition.
type Request struct {
	Previous   models.TableState
	Next       models.TableState
	Confidence float64
	Source     models.StateSource
	Provenance string
}

// Outcome is the FSM's verdict: either Accept (append a log row and
// apply Next) or a rejection.
type Outcome struct {
	Accepted bool
	// NoOp is never set by Apply: an accepted same-state push still
	// appends a log row, and pushes ignored for non-increasing
	// confidence are filtered out by the store before Apply is called.
	NoOp bool
}

// Apply validates req against the transition table and the §4.2
// same-state idempotence rule. It never mutates req or any shared
// state; the caller (store) is responsible for persisting the result.
func Apply(req Request) (Outcome, error) {
	if req.Confidence < 0 || req.Confidence > 1 {
		return Outcome{}, apperr.New(component, apperr.KindInput, "confidence out of range [0,1]")
	}

	if req.Previous == req.Next {
		return applySameState(req)
	}

	allowed, ok := transitions[req.Previous]
	if !ok || !allowed[req.Next] {
		return Outcome{}, apperr.New(component, apperr.KindInvariant, "invalid transition "+string(req.Previous)+"->"+string(req.Next))
	}
	return Outcome{Accepted: true}, nil
}

// applySameState implements "clean↔clean and occupied→occupied
// accepted as no-ops for idempotent ML pushes if confidence > current
// confidence; otherwise ignored" — but the comparison against *current*
// confidence is the caller's job (store knows the current row); here we
// only gate on the state itself being one that idempotent pushes are
// legal for. Any other same-state push (e.g. dirty→dirty,
// reserved→reserved, unavailable→unavailable) is rejected.
func applySameState(req Request) (Outcome, error) {
	switch req.Previous {
	case models.TableClean, models.TableOccupied:
		return Outcome{Accepted: true}, nil
	default:
		return Outcome{}, apperr.New(component, apperr.KindInvariant, "same-state transition not idempotent for state "+string(req.Previous))
	}
}

// CurrentVisitRequired reports whether the target state requires the
// table to carry a non-null open Visit, per the §3 invariant.
func CurrentVisitRequired(state models.TableState) bool {
	return state == models.TableOccupied
}
