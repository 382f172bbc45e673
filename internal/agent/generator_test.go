package agent

import (
	"context"
	"errors"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

func authModule() generation.ModuleDefinition {
	return generation.ModuleDefinition{
		ID:           "auth",
		Name:         "Authentication",
		Dependencies: []string{"core"},
		Files: []generation.FileSpec{
			{
				Path: "src/hooks/useAuth.ts",
				Type: generation.FileHook,
				Requires: generation.Requirements{
					Imports: []string{"react", "../lib/api"},
					Exports: []string{"useAuth"},
				},
			},
			{Path: "src/hooks/useAuth.test.ts", Type: generation.FileTest},
		},
	}
}

func projectWithCore() generation.ProjectContext {
	pc := generation.NewProjectContext()
	pc.APISchema["core"] = generation.APIEntry{Exports: []string{"fetchJSON"}, Types: []string{"Session"}}
	return pc
}

func TestParseModuleOutput(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    map[string]string
		wantErr error
	}{
		{
			name:   "bare json",
			answer: `{"files": {"a.ts": "export {}"}}`,
			want:   map[string]string{"a.ts": "export {}"},
		},
		{
			name:   "fenced with language tag",
			answer: "Here you go:\n```json\n{\"files\": {\"a.ts\": \"x\"}}\n```\nDone.",
			want:   map[string]string{"a.ts": "x"},
		},
		{
			name:   "chatter around object",
			answer: `Sure! {"files": {"a.ts": "x"}, "sharedState": {"k": "v"}} hope it helps`,
			want:   map[string]string{"a.ts": "x"},
		},
		{
			name:    "no object",
			answer:  "I cannot do that",
			wantErr: ErrMalformedAnswer,
		},
		{
			name:    "invalid json",
			answer:  `{"files": {"a.ts": }`,
			wantErr: ErrMalformedAnswer,
		},
		{
			name:    "empty files",
			answer:  `{"files": {}}`,
			wantErr: ErrNoFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := parseModuleOutput(tt.answer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Files)
		})
	}
}

func TestLLMGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("renders prompt and parses answer", func(t *testing.T) {
		completer := NewScriptedCompleter().Respond(`"auth"`,
			`{"files": {"src/hooks/useAuth.ts": "export function useAuth() {}", "src/hooks/useAuth.test.ts": "test"}, "sharedState": {"auth.ready": "true"}}`)

		gen, err := NewLLMGenerator(completer, WithSystemPrompt("be brief"))
		require.NoError(t, err)

		out, err := gen.Generate(ctx, authModule(), projectWithCore())
		require.NoError(t, err)
		assert.Len(t, out.Files, 2)
		assert.Equal(t, "true", out.SharedState["auth.ready"])

		calls := completer.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "be brief", calls[0].System)
		assert.Contains(t, calls[0].User, "src/hooks/useAuth.ts (hook) imports: react, ../lib/api exports: useAuth")
		assert.Contains(t, calls[0].User, "- core exports: fetchJSON types: Session")
	})

	t.Run("empty system prompt keeps default", func(t *testing.T) {
		completer := NewScriptedCompleter().Default(`{"files": {"src/hooks/useAuth.ts": "a", "src/hooks/useAuth.test.ts": "b"}}`)
		gen, err := NewLLMGenerator(completer, WithSystemPrompt(""))
		require.NoError(t, err)

		_, err = gen.Generate(ctx, authModule(), projectWithCore())
		require.NoError(t, err)
		assert.Equal(t, defaultSystemPrompt, completer.Calls()[0].System)
	})

	t.Run("missing files fail the module", func(t *testing.T) {
		completer := NewScriptedCompleter().Default(`{"files": {"src/hooks/useAuth.ts": "a"}}`)
		gen, err := NewLLMGenerator(completer)
		require.NoError(t, err)

		_, err = gen.Generate(ctx, authModule(), projectWithCore())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "omits src/hooks/useAuth.test.ts")
	})

	t.Run("completion errors are wrapped", func(t *testing.T) {
		boom := errors.New("model offline")
		gen, err := NewLLMGenerator(NewScriptedCompleter().Fail("auth", boom))
		require.NoError(t, err)

		_, err = gen.Generate(ctx, authModule(), projectWithCore())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("custom template", func(t *testing.T) {
		tmpl := template.Must(template.New("custom").Funcs(promptFuncs).Parse(`module={{.Module.ID}} deps={{len .Dependencies}}`))
		completer := NewScriptedCompleter().Default(`{"files": {"src/hooks/useAuth.ts": "a", "src/hooks/useAuth.test.ts": "b"}}`)
		gen, err := NewLLMGenerator(completer, WithPromptTemplate(tmpl))
		require.NoError(t, err)

		_, err = gen.Generate(ctx, authModule(), projectWithCore())
		require.NoError(t, err)
		assert.Equal(t, "module=auth deps=1", completer.Calls()[0].User)
	})
}
