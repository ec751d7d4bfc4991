package service

import (
	"sort"
	"strings"
)

// Cycle length bounds for circular-routing detection. Loops longer than five
// hops are not reported as circular routing.
const (
	minCycleLength = 3
	maxCycleLength = 5
)

// canonicalCycle returns the rotation of a cycle that starts at its minimum
// account id. Two cycles that are rotations of one another share a canonical
// form, which is the identity used for deduplication.
func canonicalCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return nil
	}
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	canon := make([]string, 0, len(cycle))
	canon = append(canon, cycle[minIdx:]...)
	canon = append(canon, cycle[:minIdx]...)
	return canon
}

// cycleKey flattens a canonical cycle into a map key. The separator cannot
// occur in account ids coming off a CSV or JSON field.
func cycleKey(canon []string) string {
	return strings.Join(canon, "\x1f")
}

// stronglyConnectedComponents runs Tarjan's algorithm over the graph,
// visiting nodes and neighbors in lexicographic order so component output is
// deterministic.
func stronglyConnectedComponents(g *txnGraph) [][]string {
	index := 0
	indices := make(map[string]int, g.nodeCount())
	lowlinks := make(map[string]int, g.nodeCount())
	onStack := make(map[string]bool, g.nodeCount())
	var stack []string
	var components [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.successors(v) {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				if lowlinks[w] < lowlinks[v] {
					lowlinks[v] = lowlinks[w]
				}
			} else if onStack[w] && indices[w] < lowlinks[v] {
				lowlinks[v] = indices[w]
			}
		}

		if lowlinks[v] == indices[v] {
			var component []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			components = append(components, component)
		}
	}

	for _, v := range g.nodes() {
		if _, seen := indices[v]; !seen {
			strongConnect(v)
		}
	}
	return components
}

// enumerateCycles finds every distinct simple directed cycle of bounded
// length in the pruned graph. Components smaller than the minimum cycle
// length are skipped; within a component a depth-bounded backtracking DFS
// enumerates cycles, which are canonicalized and deduplicated against a
// seen-set. Each ring is yielded exactly once, in first-discovery order.
func enumerateCycles(g *txnGraph) [][]string {
	var cycles [][]string
	seen := make(map[string]struct{})

	for _, component := range stronglyConnectedComponents(g) {
		if len(component) < minCycleLength {
			continue
		}
		inComponent := make(map[string]struct{}, len(component))
		for _, id := range component {
			inComponent[id] = struct{}{}
		}
		sort.Strings(component)

		for _, start := range component {
			path := []string{start}
			onPath := map[string]struct{}{start: {}}

			var extend func(current string)
			extend = func(current string) {
				for _, next := range g.successors(current) {
					if _, ok := inComponent[next]; !ok {
						continue
					}
					if next == start {
						if len(path) >= minCycleLength {
							canon := canonicalCycle(path)
							key := cycleKey(canon)
							if _, dup := seen[key]; !dup {
								seen[key] = struct{}{}
								cycles = append(cycles, canon)
							}
						}
						continue
					}
					if _, visiting := onPath[next]; visiting {
						continue
					}
					if len(path) == maxCycleLength {
						continue
					}
					path = append(path, next)
					onPath[next] = struct{}{}
					extend(next)
					delete(onPath, next)
					path = path[:len(path)-1]
				}
			}
			extend(start)
		}
	}
	return cycles
}

// cycleEdges pairs consecutive members, wrapping the last back to the first.
func cycleEdges(cycle []string) [][2]string {
	edges := make([][2]string, 0, len(cycle))
	for i, from := range cycle {
		to := cycle[(i+1)%len(cycle)]
		edges = append(edges, [2]string{from, to})
	}
	return edges
}
