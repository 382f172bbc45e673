// Package depgraph builds the module dependency graph of ES-style sources and
// reports circular dependencies.
package depgraph

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/vampirenirmal/codeorc/internal/analysis"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

const defaultMediumMaxNodes = 2

// Config tunes cycle severity.
type Config struct {
	// MediumMaxNodes is the largest strongly connected component that is
	// still reported as medium.
	MediumMaxNodes int
	// Boundaries maps an architectural group to the directory prefixes it owns.
	Boundaries map[string][]string
}

type Builder struct {
	cfg    Config
	logger *slog.Logger
}

type Option func(*Builder)

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func New(cfg Config, opts ...Option) *Builder {
	if cfg.MediumMaxNodes <= 0 {
		cfg.MediumMaxNodes = defaultMediumMaxNodes
	}
	b := &Builder{
		cfg:    cfg,
		logger: slog.Default().With("component", "depgraph"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Name() string { return "depgraph" }

// Analyze parses every file's imports, resolves relative specifiers against
// the other files and builds the graph.
func (b *Builder) Analyze(ctx context.Context, src analysis.Source) (domain.DependencyGraphResult, error) {
	known := make(map[string]bool, len(src.Files))
	for _, f := range src.Files {
		known[f.Path] = true
	}

	nodes := make([]domain.GraphNode, 0, len(src.Files))
	var edges []domain.GraphEdge
	external := 0

	for _, f := range src.Files {
		if err := ctx.Err(); err != nil {
			return domain.DependencyGraphResult{}, err
		}

		refs := parseImports(f.Content)
		specs := make(map[string]bool)
		for _, ref := range refs {
			specs[ref.Spec] = true
			target, ok := resolve(f.Path, ref.Spec, known)
			if !ok {
				if _, bare := generation.ExternalPackage(ref.Spec); bare {
					external++
				}
				continue
			}
			edges = append(edges, domain.GraphEdge{Source: f.Path, Target: target, Type: ref.Kind})
		}

		nodes = append(nodes, domain.GraphNode{
			ID:          f.Path,
			Type:        string(generation.ClassifyPath(f.Path)),
			Complexity:  analysis.DecisionPoints(f.Content),
			ImportCount: len(specs),
		})
	}

	result := b.BuildGraph(nodes, edges)
	b.logger.Debug("dependency graph built",
		"nodes", result.Metrics.NodeCount,
		"edges", result.Metrics.EdgeCount,
		"external_imports", external,
		"cycles", len(result.Cycles))
	return result, nil
}

// BuildGraph normalises an existing graph and computes its cycles and
// metrics. Edges are deduplicated per (source, target, type); endpoints that
// are not among nodes are added with a type inferred from their path.
func (b *Builder) BuildGraph(nodes []domain.GraphNode, edges []domain.GraphEdge) domain.DependencyGraphResult {
	byID := make(map[string]domain.GraphNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	seen := make(map[domain.GraphEdge]bool, len(edges))
	outEdges := make([]domain.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if seen[e] {
			continue
		}
		seen[e] = true
		outEdges = append(outEdges, e)
		for _, id := range []string{e.Source, e.Target} {
			if _, ok := byID[id]; !ok {
				byID[id] = domain.GraphNode{ID: id, Type: string(generation.ClassifyPath(id))}
			}
		}
	}
	sort.Slice(outEdges, func(i, j int) bool {
		a, c := outEdges[i], outEdges[j]
		if a.Source != c.Source {
			return a.Source < c.Source
		}
		if a.Target != c.Target {
			return a.Target < c.Target
		}
		return a.Type < c.Type
	})

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	outNodes := make([]domain.GraphNode, 0, len(ids))
	for _, id := range ids {
		outNodes = append(outNodes, byID[id])
	}

	g := newGraph(ids, outEdges)
	return domain.DependencyGraphResult{
		Nodes:   outNodes,
		Edges:   outEdges,
		Cycles:  b.cycles(g),
		Metrics: metrics(g, outEdges),
	}
}

// graph is an adjacency view with sorted, unique successors.
type graph struct {
	ids  []string
	succ map[string][]string
	// kinds holds every edge type seen between a pair
	kinds map[[2]string]map[string]bool
}

func newGraph(ids []string, edges []domain.GraphEdge) *graph {
	g := &graph{
		ids:   ids,
		succ:  make(map[string][]string, len(ids)),
		kinds: make(map[[2]string]map[string]bool),
	}
	for _, e := range edges {
		key := [2]string{e.Source, e.Target}
		if g.kinds[key] == nil {
			g.kinds[key] = make(map[string]bool)
			g.succ[e.Source] = append(g.succ[e.Source], e.Target)
		}
		g.kinds[key][e.Type] = true
	}
	for id := range g.succ {
		sort.Strings(g.succ[id])
	}
	return g
}

func (g *graph) hasEdge(from, to string) bool {
	return g.kinds[[2]string{from, to}] != nil
}

// dynamicOnly reports whether every edge from -> to is a lazy import.
func (g *graph) dynamicOnly(from, to string) bool {
	k := g.kinds[[2]string{from, to}]
	return len(k) == 1 && k[domain.EdgeDynamic]
}

// stronglyConnected runs Tarjan's algorithm. Components come back with their
// members sorted.
func (g *graph) stronglyConnected() [][]string {
	var (
		index   int
		stack   []string
		onStack = make(map[string]bool)
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		sccs    [][]string
	)

	var strongconnect func(v string)
	strongconnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.succ[v] {
			if _, visited := indices[w]; !visited {
				strongconnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Strings(comp)
			sccs = append(sccs, comp)
		}
	}

	for _, id := range g.ids {
		if _, visited := indices[id]; !visited {
			strongconnect(id)
		}
	}
	return sccs
}

// cyclePath returns the shortest cycle through start that stays inside
// members, visiting successors in id order.
func (g *graph) cyclePath(start string, members map[string]bool) []string {
	if g.hasEdge(start, start) {
		return []string{start}
	}

	parent := map[string]string{}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.succ[v] {
			if !members[w] {
				continue
			}
			if w == start {
				var rev []string
				for n := v; n != start; n = parent[n] {
					rev = append(rev, n)
				}
				out := []string{start}
				for i := len(rev) - 1; i >= 0; i-- {
					out = append(out, rev[i])
				}
				return out
			}
			if !visited[w] {
				visited[w] = true
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return nil
}

// withoutLazy copies g, dropping every pair whose only edges are lazy imports.
func (g *graph) withoutLazy() *graph {
	h := &graph{
		ids:   g.ids,
		succ:  make(map[string][]string, len(g.succ)),
		kinds: make(map[[2]string]map[string]bool, len(g.kinds)),
	}
	for _, from := range g.ids {
		for _, to := range g.succ[from] {
			if g.dynamicOnly(from, to) {
				continue
			}
			key := [2]string{from, to}
			h.kinds[key] = g.kinds[key]
			h.succ[from] = append(h.succ[from], to)
		}
	}
	return h
}

// shortestPath returns the BFS path from -> to inside members, both ends
// included. A path from a node to itself is just that node.
func (g *graph) shortestPath(from, to string, members map[string]bool) []string {
	if from == to {
		return []string{from}
	}
	parent := map[string]string{}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.succ[v] {
			if !members[w] || visited[w] {
				continue
			}
			visited[w] = true
			parent[w] = v
			if w == to {
				var rev []string
				for n := to; n != from; n = parent[n] {
					rev = append(rev, n)
				}
				out := []string{from}
				for i := len(rev) - 1; i >= 0; i-- {
					out = append(out, rev[i])
				}
				return out
			}
			queue = append(queue, w)
		}
	}
	return nil
}

// lazyCyclePath returns the shortest cycle inside members that crosses a
// lazy-only edge, rotated to start at its smallest id.
func (g *graph) lazyCyclePath(comp []string, members map[string]bool) []string {
	var best []string
	for _, from := range comp {
		for _, to := range g.succ[from] {
			if !members[to] || !g.dynamicOnly(from, to) {
				continue
			}
			back := g.shortestPath(to, from, members)
			if back == nil {
				continue
			}
			cycle := append([]string{from}, back[:len(back)-1]...)
			if best == nil || len(cycle) < len(best) {
				best = cycle
			}
		}
	}
	if len(best) == 0 {
		return best
	}
	first := 0
	for i, id := range best {
		if id < best[first] {
			first = i
		}
	}
	return append(append([]string{}, best[first:]...), best[:first]...)
}

func cyclic(g *graph, comp []string) bool {
	return len(comp) > 1 || g.hasEdge(comp[0], comp[0])
}

func memberSet(comp []string) map[string]bool {
	members := make(map[string]bool, len(comp))
	for _, id := range comp {
		members[id] = true
	}
	return members
}

// cycles reports every cycle that survives with lazy imports removed at
// medium or high severity. A component that is only cyclic through lazy
// imports is reported once more at low severity, alongside whatever hard
// cycles it still contains.
func (b *Builder) cycles(g *graph) []domain.GraphCycle {
	hard := g.withoutLazy()
	hardOf := make(map[string][]string)
	for _, comp := range hard.stronglyConnected() {
		if cyclic(hard, comp) {
			hardOf[comp[0]] = comp
		}
	}

	out := []domain.GraphCycle{}
	for _, comp := range g.stronglyConnected() {
		if !cyclic(g, comp) {
			continue
		}
		intact := false
		for _, id := range comp {
			sub, ok := hardOf[id]
			if !ok {
				continue
			}
			out = append(out, domain.GraphCycle{
				Nodes:     hard.cyclePath(sub[0], memberSet(sub)),
				Component: sub,
				Severity:  b.severity(sub),
			})
			intact = intact || len(sub) == len(comp)
		}
		if intact {
			continue
		}
		out = append(out, domain.GraphCycle{
			Nodes:     g.lazyCyclePath(comp, memberSet(comp)),
			Component: comp,
			Severity:  domain.SeverityLow,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Component[0] != out[j].Component[0] {
			return out[i].Component[0] < out[j].Component[0]
		}
		return len(out[i].Component) > len(out[j].Component)
	})
	return out
}

func (b *Builder) severity(comp []string) domain.Severity {
	if len(comp) > b.cfg.MediumMaxNodes || b.spansBoundaries(comp) {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

// spansBoundaries reports whether the component's files belong to more than
// one configured group. Files outside every group are ignored.
func (b *Builder) spansBoundaries(comp []string) bool {
	if len(b.cfg.Boundaries) == 0 {
		return false
	}
	groups := make(map[string]bool)
	for _, id := range comp {
		if g, ok := b.groupOf(id); ok {
			groups[g] = true
		}
	}
	return len(groups) > 1
}

func (b *Builder) groupOf(id string) (string, bool) {
	names := make([]string, 0, len(b.cfg.Boundaries))
	for name := range b.cfg.Boundaries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, prefix := range b.cfg.Boundaries[name] {
			prefix = strings.TrimSuffix(prefix, "/")
			if id == prefix || strings.HasPrefix(id, prefix+"/") || strings.Contains(id, "/"+prefix+"/") {
				return name, true
			}
		}
	}
	return "", false
}

func metrics(g *graph, edges []domain.GraphEdge) domain.GraphMetrics {
	n, e := len(g.ids), len(edges)
	m := domain.GraphMetrics{
		NodeCount:          n,
		EdgeCount:          e,
		DependencyCohesion: 1,
	}
	if n == 0 {
		return m
	}
	m.AverageDegree = float64(e) / float64(n)
	m.CyclomaticComplexity = e - n + 2*weakComponents(g)

	if e > 0 {
		intra := 0
		for _, edge := range edges {
			if path.Dir(edge.Source) == path.Dir(edge.Target) {
				intra++
			}
		}
		m.DependencyCohesion = float64(intra) / float64(e)
	}
	return m
}

// weakComponents counts connected components ignoring edge direction.
func weakComponents(g *graph) int {
	parent := make(map[string]string, len(g.ids))
	for _, id := range g.ids {
		parent[id] = id
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	count := len(g.ids)
	for from, tos := range g.succ {
		for _, to := range tos {
			if a, b := find(from), find(to); a != b {
				parent[a] = b
				count--
			}
		}
	}
	return count
}
