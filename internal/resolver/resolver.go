// Package resolver orders generation modules so that every module comes after
// the modules it depends on.
package resolver

import (
	"sort"

	"github.com/vampirenirmal/codeorc/internal/domain/generation"
)

// Resolve returns module ids in dependency order. Among modules that become
// ready at the same time, lower Order wins, then lower id.
//
// It fails with *UnknownDependencyError when a module names a dependency that
// is not part of modules, and with *CycleError when the dependency graph is
// not acyclic.
func Resolve(modules map[string]generation.ModuleDefinition) ([]string, error) {
	ids := sortedIDs(modules)

	deps := make(map[string][]string, len(modules))
	for _, id := range ids {
		unique := uniqueSorted(modules[id].Dependencies)
		for _, dep := range unique {
			if _, ok := modules[dep]; !ok {
				return nil, &UnknownDependencyError{Module: id, Dependency: dep}
			}
		}
		deps[id] = unique
	}

	inDegree := make(map[string]int, len(modules))
	dependents := make(map[string][]string, len(modules))
	for _, id := range ids {
		inDegree[id] = len(deps[id])
		for _, dep := range deps[id] {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	less := func(a, b string) bool {
		oa, ob := modules[a].Order, modules[b].Order
		if oa != ob {
			return oa < ob
		}
		return a < b
	}

	var ready []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]string, 0, len(modules))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
	}

	if len(order) < len(modules) {
		remaining := make(map[string]bool)
		for _, id := range ids {
			if inDegree[id] > 0 {
				remaining[id] = true
			}
		}
		return nil, &CycleError{Cycle: findCycle(remaining, deps)}
	}

	return order, nil
}

// findCycle walks "depends on" edges inside the unscheduled set until a node
// repeats. Every unscheduled node has at least one unscheduled dependency, so
// the walk always closes.
func findCycle(remaining map[string]bool, deps map[string][]string) []string {
	start := ""
	for id := range remaining {
		if start == "" || id < start {
			start = id
		}
	}

	index := make(map[string]int)
	var path []string
	cur := start
	for {
		if i, seen := index[cur]; seen {
			return rotateToSmallest(path[i:])
		}
		index[cur] = len(path)
		path = append(path, cur)

		next := ""
		for _, dep := range deps[cur] {
			if remaining[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			// Unreachable for a consistent graph.
			return rotateToSmallest(path)
		}
		cur = next
	}
}

func rotateToSmallest(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[min:]...)
	out = append(out, cycle[:min]...)
	return out
}

// Dependents returns the reverse dependency graph: module id to the sorted ids
// of modules that declare it as a dependency.
func Dependents(modules map[string]generation.ModuleDefinition) map[string][]string {
	out := make(map[string][]string, len(modules))
	for _, id := range sortedIDs(modules) {
		for _, dep := range uniqueSorted(modules[id].Dependencies) {
			out[dep] = append(out[dep], id)
		}
	}
	return out
}

// Layers groups modules by dependency depth. Modules in one layer only depend
// on modules in earlier layers, so a layer has no internal ordering constraint.
func Layers(modules map[string]generation.ModuleDefinition) ([][]string, error) {
	order, err := Resolve(modules)
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, id := range order {
		d := 0
		for _, dep := range modules[id].Dependencies {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([][]string, maxDepth+1)
	for _, id := range order {
		layers[depth[id]] = append(layers[depth[id]], id)
	}
	return layers, nil
}

func sortedIDs(modules map[string]generation.ModuleDefinition) []string {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
