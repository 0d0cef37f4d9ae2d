package geocode

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// CountyIndex answers point-in-county queries from a TIGER/Line county
// boundary shapefile loaded into memory. It backstops the Census geocoder
// for matches that carry coordinates but no county geography.
type CountyIndex struct {
	counties []countyShape
}

type countyShape struct {
	name  string
	bbox  shp.Box
	rings [][]float64 // flat XY coords per ring
}

// LoadCountyIndex reads county polygons and names from a shapefile.
func LoadCountyIndex(shpPath string) (*CountyIndex, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: open county shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "NAME") {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("geocode: county shapefile %s has no NAME field", shpPath)
	}

	idx := &CountyIndex{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || len(poly.Points) == 0 {
			skipped++
			continue
		}

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}

		idx.counties = append(idx.counties, countyShape{
			name:  name,
			bbox:  poly.Box,
			rings: polygonRings(poly),
		})
	}

	if skipped > 0 {
		zap.L().Debug("geocode: skipped county shapefile records", zap.Int("skipped", skipped))
	}
	return idx, nil
}

// Locate implements CountyLocator. Ring containment uses the even-odd rule,
// which handles holes and multi-part counties without tracking orientation.
func (idx *CountyIndex) Locate(lon, lat float64) (string, bool) {
	pt := geom.Coord{lon, lat}
	for _, c := range idx.counties {
		if lon < c.bbox.MinX || lon > c.bbox.MaxX || lat < c.bbox.MinY || lat > c.bbox.MaxY {
			continue
		}
		inside := 0
		for _, ring := range c.rings {
			if xy.IsPointInRing(geom.XY, pt, ring) {
				inside++
			}
		}
		if inside%2 == 1 {
			return c.name, true
		}
	}
	return "", false
}

// polygonRings converts a shapefile polygon's parts to flat coordinate rings.
func polygonRings(poly *shp.Polygon) [][]float64 {
	numParts := int(poly.NumParts)
	rings := make([][]float64, 0, numParts)
	for i := 0; i < numParts; i++ {
		start := int(poly.Parts[i])
		end := len(poly.Points)
		if i+1 < numParts {
			end = int(poly.Parts[i+1])
		}
		if end <= start {
			continue
		}
		ring := make([]float64, 0, (end-start)*2)
		for _, p := range poly.Points[start:end] {
			ring = append(ring, p.X, p.Y)
		}
		rings = append(rings, ring)
	}
	return rings
}
