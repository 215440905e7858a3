package tablefsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

func TestApplyAcceptsValidTransitions(t *testing.T) {
	cases := []struct {
		from, to models.TableState
	}{
		{models.TableClean, models.TableOccupied},
		{models.TableClean, models.TableReserved},
		{models.TableClean, models.TableUnavailable},
		{models.TableOccupied, models.TableDirty},
		{models.TableDirty, models.TableClean},
		{models.TableReserved, models.TableOccupied},
		{models.TableReserved, models.TableClean},
		{models.TableUnavailable, models.TableClean},
	}
	for _, c := range cases {
		out, err := Apply(Request{Previous: c.from, Next: c.to, Confidence: 0.9})
		assert.NoError(t, err, "%s->%s should be accepted", c.from, c.to)
		assert.True(t, out.Accepted)
	}
}

func TestApplyRejectsInvalidTransition(t *testing.T) {
	_, err := Apply(Request{Previous: models.TableDirty, Next: models.TableOccupied, Confidence: 0.9})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInvariant, apperr.KindOf(err))
}

func TestApplyRejectsUnknownPreviousState(t *testing.T) {
	_, err := Apply(Request{Previous: models.TableState("bogus"), Next: models.TableClean, Confidence: 0.9})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInvariant, apperr.KindOf(err))
}

func TestApplySameStateIdempotentForCleanAndOccupied(t *testing.T) {
	out, err := Apply(Request{Previous: models.TableClean, Next: models.TableClean, Confidence: 0.95})
	assert.NoError(t, err)
	assert.True(t, out.Accepted)

	out, err = Apply(Request{Previous: models.TableOccupied, Next: models.TableOccupied, Confidence: 0.6})
	assert.NoError(t, err)
	assert.True(t, out.Accepted)
}

func TestApplySameStateRejectedForOtherStates(t *testing.T) {
	for _, s := range []models.TableState{models.TableDirty, models.TableReserved, models.TableUnavailable} {
		_, err := Apply(Request{Previous: s, Next: s, Confidence: 0.9})
		assert.Error(t, err, "same-state %s should be rejected", s)
		assert.Equal(t, apperr.KindInvariant, apperr.KindOf(err))
	}
}

func TestApplyRejectsOutOfRangeConfidence(t *testing.T) {
	_, err := Apply(Request{Previous: models.TableClean, Next: models.TableOccupied, Confidence: 1.5})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))

	_, err = Apply(Request{Previous: models.TableClean, Next: models.TableOccupied, Confidence: -0.1})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
}

func TestCurrentVisitRequired(t *testing.T) {
	assert.True(t, CurrentVisitRequired(models.TableOccupied))
	assert.False(t, CurrentVisitRequired(models.TableClean))
	assert.False(t, CurrentVisitRequired(models.TableDirty))
	assert.False(t, CurrentVisitRequired(models.TableReserved))
	assert.False(t, CurrentVisitRequired(models.TableUnavailable))
}
