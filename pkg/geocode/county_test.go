package geocode

import (
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
)

// squareCounty builds a countyShape covering [minX,maxX]x[minY,maxY].
func squareCounty(name string, minX, minY, maxX, maxY float64) countyShape {
	return countyShape{
		name: name,
		bbox: shp.Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY},
		rings: [][]float64{{
			minX, minY,
			maxX, minY,
			maxX, maxY,
			minX, maxY,
			minX, minY,
		}},
	}
}

func TestCountyIndexLocate(t *testing.T) {
	idx := &CountyIndex{counties: []countyShape{
		squareCounty("Wake", -79, 35, -78, 36),
		squareCounty("Durham", -80, 35, -79, 36),
	}}

	county, ok := idx.Locate(-78.5, 35.5)
	assert.True(t, ok)
	assert.Equal(t, "Wake", county)

	county, ok = idx.Locate(-79.5, 35.5)
	assert.True(t, ok)
	assert.Equal(t, "Durham", county)

	_, ok = idx.Locate(-75, 40)
	assert.False(t, ok)
}

func TestCountyIndexLocateHole(t *testing.T) {
	// Outer ring with an inner hole: points in the hole are outside the
	// county under the even-odd rule.
	outer := squareCounty("Donut", 0, 0, 10, 10)
	outer.rings = append(outer.rings, []float64{
		4, 4,
		6, 4,
		6, 6,
		4, 6,
		4, 4,
	})

	idx := &CountyIndex{counties: []countyShape{outer}}

	county, ok := idx.Locate(2, 2)
	assert.True(t, ok)
	assert.Equal(t, "Donut", county)

	_, ok = idx.Locate(5, 5)
	assert.False(t, ok)
}

func TestPolygonRingsMultiPart(t *testing.T) {
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, 3},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1},
			{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 5, Y: 6}, {X: 5, Y: 5},
		},
	}

	rings := polygonRings(poly)
	assert.Len(t, rings, 2)
	assert.Equal(t, []float64{0, 0, 1, 0, 0, 1}, rings[0])
	assert.Equal(t, []float64{5, 5, 6, 5, 5, 6, 5, 5}, rings[1])
}
