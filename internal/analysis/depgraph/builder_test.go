package depgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

func edge(from, to string) domain.GraphEdge {
	return domain.GraphEdge{Source: from, Target: to, Type: domain.EdgeStatic}
}

func TestBuildGraphThreeNodeCycle(t *testing.T) {
	b := New(Config{})
	res := b.BuildGraph(nil, []domain.GraphEdge{edge("A", "B"), edge("B", "C"), edge("C", "A")})

	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"A", "B", "C"}, res.Cycles[0].Nodes)
	assert.Equal(t, []string{"A", "B", "C"}, res.Cycles[0].Component)
	assert.Equal(t, domain.SeverityHigh, res.Cycles[0].Severity)
	assert.Len(t, res.Nodes, 3, "endpoints become nodes")
}

func TestBuildGraphCycleSeverity(t *testing.T) {
	dyn := func(from, to string) domain.GraphEdge {
		return domain.GraphEdge{Source: from, Target: to, Type: domain.EdgeDynamic}
	}

	tests := []struct {
		name  string
		cfg   Config
		edges []domain.GraphEdge
		want  domain.Severity
		path  []string
	}{
		{
			name:  "two nodes is medium",
			edges: []domain.GraphEdge{edge("a", "b"), edge("b", "a")},
			want:  domain.SeverityMedium,
			path:  []string{"a", "b"},
		},
		{
			name:  "self loop is medium",
			edges: []domain.GraphEdge{edge("a", "a")},
			want:  domain.SeverityMedium,
			path:  []string{"a"},
		},
		{
			name:  "lazy edge on path is low",
			edges: []domain.GraphEdge{edge("a", "b"), edge("b", "c"), dyn("c", "a")},
			want:  domain.SeverityLow,
			path:  []string{"a", "b", "c"},
		},
		{
			name:  "lazy edge alongside static edge is not low",
			edges: []domain.GraphEdge{edge("a", "b"), edge("b", "a"), dyn("b", "a")},
			want:  domain.SeverityMedium,
			path:  []string{"a", "b"},
		},
		{
			name:  "threshold raised",
			cfg:   Config{MediumMaxNodes: 3},
			edges: []domain.GraphEdge{edge("a", "b"), edge("b", "c"), edge("c", "a")},
			want:  domain.SeverityMedium,
			path:  []string{"a", "b", "c"},
		},
		{
			name: "crossing boundary groups is high",
			cfg: Config{Boundaries: map[string][]string{
				"ui":     {"src/components"},
				"domain": {"src/domain"},
			}},
			edges: []domain.GraphEdge{edge("src/components/Cart.tsx", "src/domain/cart.ts"), edge("src/domain/cart.ts", "src/components/Cart.tsx")},
			want:  domain.SeverityHigh,
			path:  []string{"src/components/Cart.tsx", "src/domain/cart.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(tt.cfg).BuildGraph(nil, tt.edges)
			require.Len(t, res.Cycles, 1)
			assert.Equal(t, tt.want, res.Cycles[0].Severity)
			assert.Equal(t, tt.path, res.Cycles[0].Nodes)
		})
	}
}

func TestBuildGraphLazyEdgeDoesNotHideHardCycle(t *testing.T) {
	edges := []domain.GraphEdge{
		{Source: "a.ts", Target: "b.ts", Type: domain.EdgeDynamic},
		edge("b.ts", "a.ts"),
		edge("b.ts", "c.ts"),
		edge("c.ts", "b.ts"),
	}
	res := New(Config{}).BuildGraph(nil, edges)

	require.Len(t, res.Cycles, 2)

	lazy := res.Cycles[0]
	assert.Equal(t, []string{"a.ts", "b.ts", "c.ts"}, lazy.Component)
	assert.Equal(t, []string{"a.ts", "b.ts"}, lazy.Nodes)
	assert.Equal(t, domain.SeverityLow, lazy.Severity)

	hard := res.Cycles[1]
	assert.Equal(t, []string{"b.ts", "c.ts"}, hard.Component)
	assert.Equal(t, []string{"b.ts", "c.ts"}, hard.Nodes)
	assert.Equal(t, domain.SeverityMedium, hard.Severity)
}

func TestBuildGraphLazySelfLoopIsLow(t *testing.T) {
	res := New(Config{}).BuildGraph(nil, []domain.GraphEdge{
		{Source: "a.ts", Target: "a.ts", Type: domain.EdgeDynamic},
	})

	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"a.ts"}, res.Cycles[0].Nodes)
	assert.Equal(t, domain.SeverityLow, res.Cycles[0].Severity)
}

func TestBuildGraphCyclePathIsReal(t *testing.T) {
	// SCC {a,b,c,d}; shortest way back to "a" goes through d.
	edges := []domain.GraphEdge{
		edge("a", "b"), edge("b", "c"), edge("c", "a"),
		edge("a", "d"), edge("d", "a"), edge("c", "d"),
	}
	res := New(Config{}).BuildGraph(nil, edges)

	require.Len(t, res.Cycles, 1)
	c := res.Cycles[0]
	assert.Equal(t, []string{"a", "b", "c", "d"}, c.Component)
	assert.Equal(t, []string{"a", "d"}, c.Nodes)

	has := make(map[[2]string]bool)
	for _, e := range edges {
		has[[2]string{e.Source, e.Target}] = true
	}
	for i, from := range c.Nodes {
		to := c.Nodes[(i+1)%len(c.Nodes)]
		assert.True(t, has[[2]string{from, to}], "%s -> %s is not an edge", from, to)
	}
}

func TestBuildGraphSeparateCycles(t *testing.T) {
	edges := []domain.GraphEdge{
		edge("x", "y"), edge("y", "x"),
		edge("b", "a"), edge("a", "b"),
		edge("a", "x"),
	}
	res := New(Config{}).BuildGraph(nil, edges)

	require.Len(t, res.Cycles, 2)
	assert.Equal(t, []string{"a", "b"}, res.Cycles[0].Nodes)
	assert.Equal(t, []string{"x", "y"}, res.Cycles[1].Nodes)
}

func TestBuildGraphAcyclic(t *testing.T) {
	res := New(Config{}).BuildGraph(nil, []domain.GraphEdge{edge("a", "b"), edge("b", "c"), edge("a", "c")})
	assert.Empty(t, res.Cycles)
	assert.NotNil(t, res.Cycles)
}

func TestBuildGraphDedupAndMetrics(t *testing.T) {
	nodes := []domain.GraphNode{
		{ID: "src/a.ts", Type: "util"},
		{ID: "src/b.ts", Type: "util"},
		{ID: "lib/c.ts", Type: "util"},
		{ID: "lone.ts", Type: "util"},
	}
	edges := []domain.GraphEdge{
		edge("src/a.ts", "src/b.ts"),
		edge("src/a.ts", "src/b.ts"),
		{Source: "src/a.ts", Target: "src/b.ts", Type: domain.EdgeType},
		edge("src/b.ts", "lib/c.ts"),
	}
	res := New(Config{}).BuildGraph(nodes, edges)

	assert.Len(t, res.Edges, 3)
	m := res.Metrics
	assert.Equal(t, 4, m.NodeCount)
	assert.Equal(t, 3, m.EdgeCount)
	assert.InDelta(t, 0.75, m.AverageDegree, 1e-9)
	// E - N + 2P = 3 - 4 + 2*2
	assert.Equal(t, 3, m.CyclomaticComplexity)
	assert.InDelta(t, 2.0/3.0, m.DependencyCohesion, 1e-9)
}

func TestBuildGraphEmpty(t *testing.T) {
	res := New(Config{}).BuildGraph(nil, nil)
	assert.Empty(t, res.Nodes)
	assert.Equal(t, 1.0, res.Metrics.DependencyCohesion)
	assert.Zero(t, res.Metrics.CyclomaticComplexity)
}

func TestAnalyzeSource(t *testing.T) {
	src := analysis.NewSource(map[string]string{
		"src/index.ts": `
import { api } from './api'
import type { User } from './types/user'
import React from 'react'
import './styles.css'
export * from './utils'
const lazy = () => import('./pages/Settings')
`,
		"src/api.ts": `
const axios = require('axios')
import { format } from './utils/format.js'
export function api(id) {
  if (id && id > 0) { return axios.get('/u/' + id) }
  return null
}
`,
		"src/types/user.ts":      "export interface User { id: string }",
		"src/utils/index.ts":     "export * from './format'",
		"src/utils/format.ts":    "import { api } from '../api'\nexport const format = (s) => s",
		"src/pages/Settings.tsx": "export default function Settings() { return null }",
		"src/styles.css":         "body {}",
	})

	res, err := New(Config{}).Analyze(context.Background(), src)
	require.NoError(t, err)

	got := make(map[domain.GraphEdge]bool)
	for _, e := range res.Edges {
		got[e] = true
	}
	want := []domain.GraphEdge{
		{Source: "src/index.ts", Target: "src/api.ts", Type: domain.EdgeStatic},
		{Source: "src/index.ts", Target: "src/types/user.ts", Type: domain.EdgeType},
		{Source: "src/index.ts", Target: "src/styles.css", Type: domain.EdgeStatic},
		{Source: "src/index.ts", Target: "src/utils/index.ts", Type: domain.EdgeReexport},
		{Source: "src/index.ts", Target: "src/pages/Settings.tsx", Type: domain.EdgeDynamic},
		{Source: "src/api.ts", Target: "src/utils/format.ts", Type: domain.EdgeStatic},
		{Source: "src/utils/index.ts", Target: "src/utils/format.ts", Type: domain.EdgeReexport},
		{Source: "src/utils/format.ts", Target: "src/api.ts", Type: domain.EdgeStatic},
	}
	for _, e := range want {
		assert.True(t, got[e], "missing edge %+v", e)
	}
	assert.Len(t, res.Edges, len(want), "react and axios stay external")

	require.Len(t, res.Cycles, 1)
	assert.Equal(t, []string{"src/api.ts", "src/utils/format.ts"}, res.Cycles[0].Nodes)
	assert.Equal(t, domain.SeverityMedium, res.Cycles[0].Severity)

	for _, n := range res.Nodes {
		switch n.ID {
		case "src/index.ts":
			assert.Equal(t, 6, n.ImportCount)
		case "src/api.ts":
			assert.Equal(t, 2, n.ImportCount)
			assert.Equal(t, 2, n.Complexity)
		case "src/types/user.ts":
			assert.Equal(t, "type", n.Type)
		case "src/pages/Settings.tsx":
			assert.Equal(t, "component", n.Type)
		}
	}
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Analyze(ctx, analysis.NewSource(map[string]string{"a.ts": "export {}"}))
	assert.ErrorIs(t, err, context.Canceled)
}
