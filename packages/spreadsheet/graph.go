package spreadsheet

import "slices"

// PointSetPair binds a formula cell to the set of points it reads
type PointSetPair struct {
	Point      Point
	References PointSet
}

// PointGraph is the persistent dependency graph between cells.
//
// forward[p] holds the points formula cell p reads, backward[q] holds the
// formula cells reading q. q ∈ forward[p] iff p ∈ backward[q]. empty sets are
// never stored in either direction.
type PointGraph struct {
	forward  PointMap[PointSet]
	backward PointMap[PointSet]
}

// PointGraphFrom builds a graph from (formula cell, references) pairs. when
// a point appears more than once the last pair wins
func PointGraphFrom(pairs []PointSetPair) PointGraph {
	var g PointGraph
	for _, pair := range pairs {
		if pair.References.Size() == 0 {
			g.forward = g.forward.Delete(pair.Point)
			continue
		}
		g.forward = g.forward.Set(pair.Point, pair.References)
	}

	// invert every forward edge
	for p, deps := range g.forward.All() {
		for dep := range deps.All() {
			g.backward = addEdge(g.backward, dep, p)
		}
	}
	return g
}

// Set replaces the forward edges of p with deps. only the changed edges are
// touched in the backward direction
func (g PointGraph) Set(p Point, deps PointSet) PointGraph {
	existing, _ := g.forward.Get(p)

	if deps.Size() == 0 {
		if existing.Size() == 0 {
			return g
		}
		next := PointGraph{forward: g.forward.Delete(p), backward: g.backward}
		for dep := range existing.All() {
			next.backward = removeEdge(next.backward, dep, p)
		}
		return next
	}

	if existing.Equal(deps) {
		return g
	}

	next := PointGraph{forward: g.forward.Set(p, deps), backward: g.backward}
	for dep := range deps.Difference(existing).All() {
		next.backward = addEdge(next.backward, dep, p)
	}
	for dep := range existing.Difference(deps).All() {
		next.backward = removeEdge(next.backward, dep, p)
	}
	return next
}

// addEdge records from in the set stored under key
func addEdge(m PointMap[PointSet], key, from Point) PointMap[PointSet] {
	set, _ := m.Get(key)
	return m.Set(key, set.Add(from))
}

// removeEdge drops from out of the set stored under key, deleting the entry
// once it is empty
func removeEdge(m PointMap[PointSet], key, from Point) PointMap[PointSet] {
	set, ok := m.Get(key)
	if !ok {
		return m
	}
	set = set.Delete(from)
	if set.Size() == 0 {
		return m.Delete(key)
	}
	return m.Set(key, set)
}

// Forward returns the points formula cell p reads
func (g PointGraph) Forward(p Point) PointSet {
	deps, _ := g.forward.Get(p)
	return deps
}

// Backwards returns the formula cells directly reading p
func (g PointGraph) Backwards(p Point) PointSet {
	deps, _ := g.backward.Get(p)
	return deps
}

// BackwardsRecursive returns every cell transitively depending on p, each
// exactly once. p itself is never part of the result, even on a cycle
func (g PointGraph) BackwardsRecursive(p Point) []Point {
	visited := map[Point]struct{}{p: {}}
	var result []Point

	stack := g.Backwards(p).Sorted()
	slices.Reverse(stack)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		result = append(result, current)

		dependents := g.Backwards(current).Sorted()
		for i := len(dependents) - 1; i >= 0; i-- {
			if _, seen := visited[dependents[i]]; !seen {
				stack = append(stack, dependents[i])
			}
		}
	}
	return result
}

// dfs colors
const (
	white uint8 = iota
	gray
	black
)

// HasCircularDependency reports whether a cycle is reachable from start
// along forward edges. a point reached twice through different paths (a
// diamond) is not a cycle; only an edge back into the current path is
func (g PointGraph) HasCircularDependency(start Point) bool {
	type frame struct {
		point Point
		deps  []Point
		next  int
	}

	color := map[Point]uint8{start: gray}
	stack := []frame{{point: start, deps: g.Forward(start).Points()}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.deps) {
			color[top.point] = black
			stack = stack[:len(stack)-1]
			continue
		}
		dep := top.deps[top.next]
		top.next++

		switch color[dep] {
		case gray:
			return true
		case white:
			color[dep] = gray
			stack = append(stack, frame{point: dep, deps: g.Forward(dep).Points()})
		}
	}
	return false
}

// TraverseBFS returns the points of the graph in evaluation order: every
// formula cell comes after all the points it reads. points on a cycle, or
// depending on one, are left out
func (g PointGraph) TraverseBFS() []Point {
	pending := make(map[Point]int, g.forward.Size())
	for p, deps := range g.forward.All() {
		pending[p] = deps.Size()
	}

	// seed with the leaves: points that read nothing
	var queue []Point
	for p := range g.backward.All() {
		if !g.forward.Has(p) {
			queue = append(queue, p)
		}
	}
	slices.SortFunc(queue, comparePoints)

	for head := 0; head < len(queue); head++ {
		for _, dependent := range g.Backwards(queue[head]).Sorted() {
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	return queue
}

// TopologicalOrder orders points so every point comes after the members of
// points it reads. edges leaving points are ignored. points caught on a
// cycle inside the subset are left out
func (g PointGraph) TopologicalOrder(points PointSet) []Point {
	pending := make(map[Point]int, points.Size())
	var queue []Point
	for p := range points.All() {
		count := 0
		for dep := range g.Forward(p).All() {
			if dep != p && points.Has(dep) {
				count++
			}
		}
		if g.Forward(p).Has(p) {
			continue
		}
		pending[p] = count
		if count == 0 {
			queue = append(queue, p)
		}
	}
	slices.SortFunc(queue, comparePoints)

	for head := 0; head < len(queue); head++ {
		for _, dependent := range g.Backwards(queue[head]).Sorted() {
			if _, tracked := pending[dependent]; !tracked {
				continue
			}
			pending[dependent]--
			if pending[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	return queue
}

// Size returns the number of formula cells with at least one reference
func (g PointGraph) Size() int {
	return g.forward.Size()
}

// Equal reports whether both graphs hold the same edges
func (g PointGraph) Equal(other PointGraph) bool {
	eq := func(a, b PointSet) bool { return a.Equal(b) }
	return g.forward.Equal(other.forward, eq) && g.backward.Equal(other.backward, eq)
}
