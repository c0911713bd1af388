package spreadsheet

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pt is shorthand for a point on column A
func pt(row int) Point {
	return Point{Row: row, Column: 0}
}

// assertConsistent checks that every forward edge has its backward twin and
// the other way around
func assertConsistent(t *testing.T, g PointGraph) {
	t.Helper()
	for p, deps := range g.forward.All() {
		assert.NotZero(t, deps.Size(), "empty forward set stored for %s", p)
		for dep := range deps.All() {
			assert.True(t, g.Backwards(dep).Has(p), "%s reads %s but is not in its backward set", p, dep)
		}
	}
	for q, readers := range g.backward.All() {
		assert.NotZero(t, readers.Size(), "empty backward set stored for %s", q)
		for reader := range readers.All() {
			assert.True(t, g.Forward(reader).Has(q), "%s is listed as reading %s", reader, q)
		}
	}
}

func chainGraph(n int) PointGraph {
	var pairs []PointSetPair
	for i := 1; i < n; i++ {
		pairs = append(pairs, PointSetPair{Point: pt(i), References: NewPointSet(pt(i - 1))})
	}
	return PointGraphFrom(pairs)
}

func TestPointGraph(t *testing.T) {
	t.Run("From", func(t *testing.T) {
		g := PointGraphFrom([]PointSetPair{
			{Point: pt(1), References: NewPointSet(pt(0))},
			{Point: pt(2), References: NewPointSet(pt(0), pt(1))},
			{Point: pt(3), References: PointSet{}},
		})
		assertConsistent(t, g)
		assert.Equal(t, 2, g.Size())
		assert.Equal(t, []Point{pt(1), pt(2)}, g.Backwards(pt(0)).Sorted())
		assert.Equal(t, []Point{pt(0), pt(1)}, g.Forward(pt(2)).Sorted())
		assert.Zero(t, g.Forward(pt(3)).Size())
	})

	t.Run("SetIsIdempotent", func(t *testing.T) {
		deps := NewPointSet(pt(0), pt(5))
		once := chainGraph(4).Set(pt(9), deps)
		twice := once.Set(pt(9), deps)
		assert.True(t, once.Equal(twice))
		assertConsistent(t, twice)
	})

	t.Run("SetMovesEdges", func(t *testing.T) {
		g := PointGraph{}.
			Set(pt(2), NewPointSet(pt(0), pt(1))).
			Set(pt(2), NewPointSet(pt(1), pt(3)))
		assertConsistent(t, g)
		assert.Zero(t, g.Backwards(pt(0)).Size())
		assert.True(t, g.Backwards(pt(3)).Has(pt(2)))

		cleared := g.Set(pt(2), PointSet{})
		assertConsistent(t, cleared)
		assert.Zero(t, cleared.Size())
		assert.Zero(t, cleared.Backwards(pt(1)).Size())
		assert.True(t, cleared.Equal(PointGraph{}))

		// the source graph is untouched
		assert.Equal(t, 1, g.Size())
	})

	t.Run("ConsistencyAfterRandomEdits", func(t *testing.T) {
		g := PointGraph{}
		for i := range 200 {
			p := pt(i % 13)
			deps := NewPointSet(pt((i*7)%11), pt((i*3)%17))
			if i%5 == 0 {
				deps = PointSet{}
			}
			g = g.Set(p, deps)
		}
		assertConsistent(t, g)
	})

	t.Run("BackwardsRecursive", func(t *testing.T) {
		// B1 and C1 read A1, D1 reads both
		a1, b1, c1, d1 := Point{0, 0}, Point{0, 1}, Point{0, 2}, Point{0, 3}
		g := PointGraphFrom([]PointSetPair{
			{Point: b1, References: NewPointSet(a1)},
			{Point: c1, References: NewPointSet(a1)},
			{Point: d1, References: NewPointSet(b1, c1)},
		})
		dependents := g.BackwardsRecursive(a1)
		assert.Len(t, dependents, 3)
		assert.ElementsMatch(t, []Point{b1, c1, d1}, dependents)
		assert.Empty(t, g.BackwardsRecursive(d1))

		cyclic := g.Set(a1, NewPointSet(d1))
		assert.NotContains(t, cyclic.BackwardsRecursive(a1), a1)
		assert.Len(t, cyclic.BackwardsRecursive(a1), 3)
	})

	t.Run("HasCircularDependency", func(t *testing.T) {
		assert.False(t, chainGraph(5).HasCircularDependency(pt(4)))
		assert.False(t, chainGraph(5).HasCircularDependency(pt(0)))

		self := PointGraph{}.Set(pt(0), NewPointSet(pt(0)))
		assert.True(t, self.HasCircularDependency(pt(0)))

		two := PointGraph{}.Set(pt(0), NewPointSet(pt(1))).Set(pt(1), NewPointSet(pt(0)))
		assert.True(t, two.HasCircularDependency(pt(0)))
		assert.True(t, two.HasCircularDependency(pt(1)))

		three := chainGraph(3).Set(pt(0), NewPointSet(pt(2)))
		assert.True(t, three.HasCircularDependency(pt(1)))

		// a cycle downstream of the start point is still reachable
		downstream := two.Set(pt(5), NewPointSet(pt(0)))
		assert.True(t, downstream.HasCircularDependency(pt(5)))

		diamond := PointGraphFrom([]PointSetPair{
			{Point: pt(1), References: NewPointSet(pt(0))},
			{Point: pt(2), References: NewPointSet(pt(0))},
			{Point: pt(3), References: NewPointSet(pt(1), pt(2))},
		})
		assert.False(t, diamond.HasCircularDependency(pt(3)))
	})

	t.Run("TraverseBFS", func(t *testing.T) {
		a1, b1, c1, d1 := Point{0, 0}, Point{0, 1}, Point{0, 2}, Point{0, 3}
		g := PointGraphFrom([]PointSetPair{
			{Point: d1, References: NewPointSet(a1, c1)},
			{Point: c1, References: NewPointSet(b1)},
			{Point: b1, References: NewPointSet(a1)},
		})
		order := g.TraverseBFS()
		assert.Equal(t, []Point{a1, b1, c1, d1}, order)
		assertTopological(t, g, order)
	})

	t.Run("TraverseBFSSkipsCycles", func(t *testing.T) {
		g := PointGraphFrom([]PointSetPair{
			{Point: pt(0), References: NewPointSet(pt(1))},
			{Point: pt(1), References: NewPointSet(pt(0))},
			{Point: pt(2), References: NewPointSet(pt(3))},
			{Point: pt(4), References: NewPointSet(pt(0), pt(3))},
		})
		assert.Equal(t, []Point{pt(3), pt(2)}, g.TraverseBFS())
	})

	t.Run("TraverseBFSLargeChain", func(t *testing.T) {
		g := chainGraph(500)
		order := g.TraverseBFS()
		require.Len(t, order, 500)
		assertTopological(t, g, order)
	})

	t.Run("TopologicalOrder", func(t *testing.T) {
		g := chainGraph(6)
		subset := NewPointSet(pt(5), pt(3), pt(4))
		assert.Equal(t, []Point{pt(3), pt(4), pt(5)}, g.TopologicalOrder(subset))

		looped := g.Set(pt(3), NewPointSet(pt(5)))
		assert.Empty(t, looped.TopologicalOrder(subset))
	})
}

func assertTopological(t *testing.T, g PointGraph, order []Point) {
	t.Helper()
	for i, p := range order {
		for dep := range g.Forward(p).All() {
			j := slices.Index(order, dep)
			assert.True(t, j >= 0 && j < i, "%s evaluated before %s", p, dep)
		}
	}
}
