package spreadsheet

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointMap(t *testing.T) {
	t.Run("SetGetDelete", func(t *testing.T) {
		var m PointMap[string]
		a := m.Set(Point{Row: 1, Column: 2}, "x")
		b := a.Set(Point{Row: 3, Column: 4}, "y")
		c := b.Set(Point{Row: 1, Column: 2}, "z")

		v, ok := c.Get(Point{Row: 1, Column: 2})
		require.True(t, ok)
		assert.Equal(t, "z", v)
		assert.Equal(t, 2, c.Size())

		// earlier versions are untouched
		v, _ = a.Get(Point{Row: 1, Column: 2})
		assert.Equal(t, "x", v)
		assert.Equal(t, 0, m.Size())
		assert.False(t, a.Has(Point{Row: 3, Column: 4}))

		d := c.Delete(Point{Row: 1, Column: 2})
		assert.False(t, d.Has(Point{Row: 1, Column: 2}))
		assert.True(t, c.Has(Point{Row: 1, Column: 2}))
		assert.Equal(t, 1, d.Size())
		assert.Equal(t, 0, d.Delete(Point{Row: 3, Column: 4}).Size())
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		m := NewPointMap(map[Point]int{{Row: 0, Column: 0}: 1})
		assert.Equal(t, m, m.Delete(Point{Row: 9, Column: 9}))
	})

	t.Run("ManyEntries", func(t *testing.T) {
		var m PointMap[int]
		for r := range 40 {
			for c := range 40 {
				m = m.Set(Point{Row: r, Column: c}, r*100+c)
			}
		}
		require.Equal(t, 1600, m.Size())

		for r := range 40 {
			for c := 0; c < 40; c += 2 {
				m = m.Delete(Point{Row: r, Column: c})
			}
		}
		assert.Equal(t, 800, m.Size())
		for r := range 40 {
			for c := range 40 {
				v, ok := m.Get(Point{Row: r, Column: c})
				if c%2 == 0 {
					assert.False(t, ok)
					continue
				}
				assert.True(t, ok)
				assert.Equal(t, r*100+c, v)
			}
		}
		assert.Len(t, m.Keys(), 800)
	})

	t.Run("OrderIndependentEquality", func(t *testing.T) {
		points := []Point{{0, 0}, {0, 1}, {5, 3}, {10, 10}, {2, 7}}
		var forward, backward PointMap[int]
		for i, p := range points {
			forward = forward.Set(p, i)
		}
		for i := len(points) - 1; i >= 0; i-- {
			backward = backward.Set(points[i], i)
		}
		eq := func(a, b int) bool { return a == b }
		assert.True(t, forward.Equal(backward, eq))
		assert.Equal(t, forward.Keys(), backward.Keys())
		assert.False(t, forward.Equal(backward.Set(Point{0, 0}, 99), eq))
		assert.False(t, forward.Equal(backward.Delete(Point{0, 0}), eq))
	})

	t.Run("FilterAndMapValues", func(t *testing.T) {
		m := NewPointMap(map[Point]int{
			{Row: 0, Column: 0}: 1,
			{Row: 0, Column: 1}: 2,
			{Row: 1, Column: 0}: 3,
		})
		odd := m.Filter(func(_ Point, v int) bool { return v%2 == 1 })
		assert.Equal(t, 2, odd.Size())
		assert.False(t, odd.Has(Point{Row: 0, Column: 1}))

		doubled := MapValues(m, func(_ Point, v int) int { return v * 2 })
		v, _ := doubled.Get(Point{Row: 1, Column: 0})
		assert.Equal(t, 6, v)
		assert.Equal(t, 3, doubled.Size())
	})

	t.Run("EarlyStop", func(t *testing.T) {
		m := NewPointMap(map[Point]bool{{0, 0}: true, {1, 1}: true, {2, 2}: true})
		count := 0
		for range m.All() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})
}

func TestPointSet(t *testing.T) {
	a1, b1, c1, d1 := Point{0, 0}, Point{0, 1}, Point{0, 2}, Point{0, 3}

	t.Run("Basics", func(t *testing.T) {
		s := NewPointSet(a1, b1, a1)
		assert.Equal(t, 2, s.Size())
		assert.True(t, s.Has(a1))
		assert.False(t, s.Has(c1))
		assert.False(t, s.Delete(a1).Has(a1))
		assert.True(t, s.Has(a1))
		assert.Equal(t, s, s.Add(a1))
	})

	t.Run("Algebra", func(t *testing.T) {
		left := NewPointSet(a1, b1, c1)
		right := NewPointSet(c1, d1)

		assert.Equal(t, []Point{a1, b1, c1, d1}, left.Union(right).Sorted())
		assert.Equal(t, []Point{a1, b1}, left.Difference(right).Sorted())
		assert.Equal(t, []Point{d1}, right.Difference(left).Sorted())
		assert.Equal(t, []Point{b1, c1}, left.Filter(func(p Point) bool { return p.Column > 0 }).Sorted())
		assert.Equal(t, []Point{{1, 0}, {1, 1}, {1, 2}}, left.Map(func(p Point) Point { return p.Add(1, 0) }).Sorted())

		sum := ReducePoints(left, func(acc int, p Point) int { return acc + p.Column }, 0)
		assert.Equal(t, 3, sum)
	})

	t.Run("Equality", func(t *testing.T) {
		assert.True(t, NewPointSet(a1, b1, c1).Equal(NewPointSet(c1, b1, a1)))
		assert.True(t, NewPointSet().Equal(PointSet{}))
		assert.False(t, NewPointSet(a1).Equal(NewPointSet(b1)))
		assert.True(t, PointSetFrom(slices.Values([]Point{b1, a1})).Equal(NewPointSet(a1, b1)))
	})

	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "{A1, B1, A2}", NewPointSet(Point{1, 0}, b1, a1).String())
		assert.Equal(t, "{}", PointSet{}.String())
	})
}
