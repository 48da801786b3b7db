package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, KindOf(ErrProjectNotFound))
	assert.Equal(t, ErrPermissionDenied, KindOf(ErrNotProjectOwner))
	assert.Equal(t, ErrInvalidState, KindOf(fmt.Errorf("decide: %w", ErrApplicationNotPending)))
	assert.Equal(t, ErrCapacityExceeded, KindOf(ErrCapacityExceeded))
	assert.Nil(t, KindOf(errors.New("connection reset")))
}

func TestDecisionStatus(t *testing.T) {
	s, ok := DecisionApprove.Status()
	assert.True(t, ok)
	assert.Equal(t, ApplicationApproved, s)
	s, ok = DecisionRefuse.Status()
	assert.True(t, ok)
	assert.Equal(t, ApplicationRefused, s)
	_, ok = Decision("maybe").Status()
	assert.False(t, ok)
}

func TestApplicationFlow(t *testing.T) {
	assert.True(t, ApplicationFlow.CanTransition(ApplicationNone, ApplicationPending))
	assert.True(t, ApplicationFlow.CanTransition(ApplicationPending, ApplicationApproved))
	assert.True(t, ApplicationFlow.CanTransition(ApplicationPending, ApplicationRefused))
	assert.False(t, ApplicationFlow.CanTransition(ApplicationApproved, ApplicationRefused))
	assert.False(t, ApplicationFlow.CanTransition(ApplicationApproved, ApplicationPending))
	assert.True(t, ApplicationFlow.IsTerminal(ApplicationApproved))
}
