package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

func TestScriptedCompleter(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := NewScriptedCompleter().
		Respond("module", "generic").
		Respond("module auth", "specific").
		Fail("explode", boom)

	got, err := s.CompleteWithSystem(ctx, "", "build module auth now")
	require.NoError(t, err)
	assert.Equal(t, "specific", got)

	got, err = s.CompleteWithSystem(ctx, "", "build module core")
	require.NoError(t, err)
	assert.Equal(t, "generic", got)

	_, err = s.CompleteWithSystem(ctx, "", "module explode")
	assert.ErrorIs(t, err, boom)

	_, err = s.CompleteWithSystem(ctx, "", "unrelated")
	assert.Error(t, err)

	s.Default("fallback")
	got, err = s.CompleteWithSystem(ctx, "sys", "unrelated")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	calls := s.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, Call{System: "sys", User: "unrelated"}, calls[4])
}

func TestScriptedGenerator(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	g := NewScriptedGenerator().
		Output("a", generation.ModuleOutput{Files: map[string]string{"a.ts": "a"}}).
		Fail("b", boom)

	out, err := g.Generate(ctx, generation.ModuleDefinition{ID: "a"}, generation.NewProjectContext())
	require.NoError(t, err)
	assert.Equal(t, "a", out.Files["a.ts"])

	_, err = g.Generate(ctx, generation.ModuleDefinition{ID: "b"}, generation.NewProjectContext())
	assert.ErrorIs(t, err, boom)

	_, err = g.Generate(ctx, generation.ModuleDefinition{ID: "c"}, generation.NewProjectContext())
	assert.Error(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, g.Seen())
}
