package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachine_Transitions(t *testing.T) {
	sm := NewStateMachine(map[string][]string{
		"draft":  {"review"},
		"review": {"done", "draft"},
		"done":   {},
	})

	assert.True(t, sm.CanTransition("draft", "review"))
	assert.True(t, sm.CanTransition("review", "draft"))
	assert.False(t, sm.CanTransition("draft", "done"))
	assert.False(t, sm.CanTransition("unknown", "draft"))

	assert.ElementsMatch(t, []string{"done", "draft"}, sm.AllowedTransitions("review"))
	assert.Empty(t, sm.AllowedTransitions("unknown"))

	assert.True(t, sm.IsTerminal("done"))
	assert.True(t, sm.IsTerminal("unknown"))
	assert.False(t, sm.IsTerminal("draft"))
}

func TestStateMachine_AllowedTransitionsIsACopy(t *testing.T) {
	sm := NewStateMachine(map[string][]string{"a": {"b"}})
	got := sm.AllowedTransitions("a")
	got[0] = "z"
	assert.True(t, sm.CanTransition("a", "b"))
}
