package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/addrcluster/internal/model"
)

func joined(coords ...float64) []model.JoinedPoint {
	var out []model.JoinedPoint
	for i := 0; i+1 < len(coords); i += 2 {
		out = append(out, model.JoinedPoint{
			AddressPoint: model.AddressPoint{Row: i / 2, X: coords[i], Y: coords[i+1]},
		})
	}
	return out
}

func TestAssign_Chain(t *testing.T) {
	// C is within radius of A, so all three join A's cluster.
	a := Assign(joined(0, 0, 0.1, 0, 0.15, 0), DefaultRadius)

	assert.Equal(t, []int{0, 0, 0}, a.IDs)
	assert.Equal(t, []int{0}, a.Anchors)
	assert.Equal(t, []int{3}, a.Sizes())
}

func TestAssign_NotTransitive(t *testing.T) {
	// C is 0.2 from A and 0.1 from B. C anchors its own cluster and takes
	// B with it, leaving A alone.
	a := Assign(joined(0, 0, 0.1, 0, 0.2, 0), DefaultRadius)

	assert.Equal(t, []int{0, 1, 1}, a.IDs)
	assert.Equal(t, []int{1, 2}, a.Sizes())
}

func TestAssign_Overwrite(t *testing.T) {
	// P0 anchors {P0, P1}. P2 is unassigned and within radius of P1, so
	// P1 moves to cluster 1.
	a := Assign(joined(0, 0, 0.16, 0, 0.32, 0), DefaultRadius)

	assert.Equal(t, []int{0, 1, 1}, a.IDs)
	assert.Equal(t, []int{0, 2}, a.Anchors)
	assert.Equal(t, []int{1, 2}, a.Sizes())
}

func TestAssign_RadiusIsInclusive(t *testing.T) {
	a := Assign(joined(0, 0, 0.17, 0), 0.17)
	assert.Equal(t, []int{0, 0}, a.IDs)
}

func TestAssign_Separated(t *testing.T) {
	a := Assign(joined(0, 0, 0.1, 0, 5, 5), DefaultRadius)

	assert.Equal(t, []int{0, 0, 1}, a.IDs)
	assert.Equal(t, []int{2, 1}, a.Sizes())
}

func TestAssign_Duplicates(t *testing.T) {
	a := Assign(joined(1, 1, 1, 1, 1, 1), DefaultRadius)
	assert.Equal(t, []int{3}, a.Sizes())
}

func TestAssign_ZeroRadius(t *testing.T) {
	a := Assign(joined(0, 0, 0.01, 0, 0, 0), 0)
	assert.Equal(t, []int{0, 1, 0}, a.IDs)
}

func TestAssign_Empty(t *testing.T) {
	a := Assign(nil, DefaultRadius)
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.IDs)
}

func TestAssign_Members(t *testing.T) {
	a := Assign(joined(0, 0, 5, 5, 0.1, 0), DefaultRadius)
	assert.Equal(t, [][]int{{0, 2}, {1}}, a.Members())
}

func TestAssign_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var coords []float64
	for i := 0; i < 400; i++ {
		coords = append(coords, rng.Float64()*3, rng.Float64()*3)
	}
	points := joined(coords...)

	a := Assign(points, DefaultRadius)
	require.Len(t, a.IDs, len(points))

	total := 0
	for id, size := range a.Sizes() {
		assert.GreaterOrEqual(t, size, 1, "cluster %d is empty", id)
		total += size
	}
	assert.Equal(t, len(points), total)

	for id, anchor := range a.Anchors {
		assert.Equal(t, id, a.IDs[anchor], "anchor of cluster %d was reassigned", id)
	}
	for i, id := range a.IDs {
		assert.NotEqual(t, Unassigned, id, "point %d unassigned", i)
	}

	again := Assign(points, DefaultRadius)
	assert.Equal(t, a, again)
}
