package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path string
		want FileType
	}{
		{"src/components/Button.tsx", FileComponent},
		{"src/widgets/Card.tsx", FileComponent},
		{"src/hooks/useAuth.ts", FileHook},
		{"src/auth/useSession.ts", FileHook},
		{"src/lib/user.ts", FileUtil},
		{"src/lib/format.js", FileUtil},
		{"src/lib/format.test.ts", FileTest},
		{"src/__tests__/auth.ts", FileTest},
		{"src/types/user.ts", FileTypeDecl},
		{"src/global.d.ts", FileTypeDecl},
		{"src/lib/user.tsx", FileUtil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPath(tt.path))
		})
	}
}

func TestExternalPackage(t *testing.T) {
	tests := []struct {
		spec   string
		want   string
		wantOK bool
	}{
		{"react", "react", true},
		{"lodash/fp", "lodash", true},
		{"@tanstack/react-query", "@tanstack/react-query", true},
		{"@tanstack/react-query/devtools", "@tanstack/react-query", true},
		{"./util", "", false},
		{"../lib/user", "", false},
		{"@/components/Button", "", false},
		{"/abs/path", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, ok := ExternalPackage(tt.spec)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTestFor(t *testing.T) {
	assert.True(t, IsTestFor("src/lib/user.test.ts", "src/lib/user.ts"))
	assert.True(t, IsTestFor("src/__tests__/user.spec.tsx", "src/lib/user.tsx"))
	assert.False(t, IsTestFor("src/lib/users.test.ts", "src/lib/user.ts"))
	assert.True(t, IsTestFor("src/lib/__tests__/user.test.ts", "src/lib/user.ts"))
	assert.True(t, IsTestFor("user.test.ts", "user.ts"))
	assert.False(t, IsTestFor("b/foo.test.ts", "a/foo.ts"), "same name in another directory")
	assert.False(t, IsTestFor("b/__tests__/foo.test.ts", "a/foo.ts"))
	assert.False(t, IsTestFor("src/a/__tests__/foo.test.ts", "src/b/c/foo.ts"))
}

func TestProjectContextCloneIsDeep(t *testing.T) {
	ctx := NewProjectContext()
	ctx.Structure.Add(FileComponent, "src/components/B.tsx")
	ctx.Structure.Add(FileComponent, "src/components/A.tsx")
	ctx.Structure.Add(FileComponent, "src/components/A.tsx")
	ctx.Dependencies.Internal["auth"] = []string{"core"}
	ctx.Dependencies.External = []string{"react"}
	ctx.SharedState["theme"] = "dark"
	ctx.APISchema["auth"] = APIEntry{Exports: []string{"login"}}
	ctx.TestCoverage["auth"] = 0.5

	assert.Equal(t, []string{"src/components/A.tsx", "src/components/B.tsx"}, ctx.Structure.Components)

	clone := ctx.Clone()
	clone.Structure.Components[0] = "mutated"
	clone.Dependencies.Internal["auth"][0] = "mutated"
	clone.Dependencies.External[0] = "mutated"
	clone.SharedState["theme"] = "light"
	clone.APISchema["auth"].Exports[0] = "mutated"
	clone.TestCoverage["auth"] = 1

	assert.Equal(t, "src/components/A.tsx", ctx.Structure.Components[0])
	assert.Equal(t, "core", ctx.Dependencies.Internal["auth"][0])
	assert.Equal(t, "react", ctx.Dependencies.External[0])
	assert.Equal(t, "dark", ctx.SharedState["theme"])
	assert.Equal(t, "login", ctx.APISchema["auth"].Exports[0])
	assert.Equal(t, 0.5, ctx.TestCoverage["auth"])
}

func TestAverageCoverage(t *testing.T) {
	ctx := NewProjectContext()
	_, ok := ctx.AverageCoverage()
	assert.False(t, ok)

	ctx.TestCoverage["a"] = 1
	ctx.TestCoverage["b"] = 0.5
	avg, ok := ctx.AverageCoverage()
	require.True(t, ok)
	assert.InDelta(t, 0.75, avg, 1e-9)
}

func TestParseDefinitions(t *testing.T) {
	t.Run("valid batch", func(t *testing.T) {
		data := []byte(`
modules:
  - id: core
    order: 1
    files:
      - path: src/lib/api.ts
        type: util
        requires:
          imports: [axios]
          exports: [fetchJSON]
  - id: auth
    name: Authentication
    dependencies: [core]
    files:
      - path: src/hooks/useAuth.ts
        type: hook
`)
		modules, err := ParseDefinitions(data)
		require.NoError(t, err)
		require.Len(t, modules, 2)
		assert.Equal(t, "core", modules["core"].Name)
		assert.Equal(t, "Authentication", modules["auth"].Name)
		assert.Equal(t, []string{"core"}, modules["auth"].Dependencies)
		assert.Equal(t, []string{"axios"}, modules["core"].Files[0].Requires.Imports)
	})

	t.Run("invalid file type", func(t *testing.T) {
		data := []byte(`
modules:
  - id: core
    files:
      - path: a.ts
        type: widget
`)
		_, err := ParseDefinitions(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Type")
	})

	t.Run("duplicate id", func(t *testing.T) {
		data := []byte(`
modules:
  - id: core
  - id: core
`)
		_, err := ParseDefinitions(data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := ParseDefinitions([]byte("modules: []\n"))
		require.Error(t, err)
	})
}

func TestGenerationStateClone(t *testing.T) {
	state := NewGenerationState("run-1", map[string]ModuleDefinition{"a": {ID: "a"}})
	state.CompletedModules = append(state.CompletedModules, "a")
	state.GeneratedFiles["a.ts"] = "x"

	clone := state.Clone()
	clone.CompletedModules[0] = "b"
	clone.GeneratedFiles["a.ts"] = "y"

	assert.True(t, state.IsCompleted("a"))
	assert.False(t, state.IsCompleted("b"))
	assert.Equal(t, "x", state.GeneratedFiles["a.ts"])
	assert.Equal(t, StatusIdle, state.Status)
	assert.False(t, state.Status.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}
