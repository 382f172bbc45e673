package core_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vampirenirmal/codeorc/internal/core"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

func chainModules(n int) map[string]generation.ModuleDefinition {
	modules := make(map[string]generation.ModuleDefinition, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("m%03d", i)
		def := generation.ModuleDefinition{
			ID:    id,
			Files: []generation.FileSpec{{Path: fmt.Sprintf("src/lib/%s.ts", id), Type: generation.FileUtil}},
		}
		if i > 0 {
			def.Dependencies = []string{fmt.Sprintf("m%03d", i-1)}
		}
		modules[id] = def
	}
	return modules
}

// BenchmarkMachineRun measures a sequential run over a linear module chain
func BenchmarkMachineRun(b *testing.B) {
	modules := chainModules(50)
	gen := newRecordingGenerator()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m := core.NewMachine(gen)
		if _, err := m.Run(ctx, modules); err != nil {
			b.Fatalf("run failed: %v", err)
		}
	}
}

// BenchmarkCacheGet measures hot-path lookups
func BenchmarkCacheGet(b *testing.B) {
	cache := core.NewMemoryCache[string, int](time.Hour, 1000)
	for i := 0; i < 1000; i++ {
		cache.Set(fmt.Sprintf("k%d", i), i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			cache.Get(fmt.Sprintf("k%d", i%1000))
			i++
		}
	})
}
