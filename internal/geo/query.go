package geo

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/facing-direction-service/internal/domain"
)

// Default half-widths of the query boxes, in degrees.
const (
	BuildingOffset       = 0.001
	StreetOffset         = 0.002
	ExtendedStreetOffset = 0.003
)

// Offsets groups the three box half-widths used by the strategies.
type Offsets struct {
	Building       float64
	Street         float64
	ExtendedStreet float64
}

// DefaultOffsets returns the standard building, street, and extended street offsets.
func DefaultOffsets() Offsets {
	return Offsets{
		Building:       BuildingOffset,
		Street:         StreetOffset,
		ExtendedStreet: ExtendedStreetOffset,
	}
}

// BuildBoundingBox returns the box of side 2*offset degrees centered on center.
func BuildBoundingBox(center domain.GeoPoint, offset float64) domain.BoundingBox {
	return domain.BoundingBox{
		North: center.Lat + offset,
		South: center.Lat - offset,
		East:  center.Lon + offset,
		West:  center.Lon - offset,
	}
}

// BuildFeatureQuery describes a request for features of kind inside box.
func BuildFeatureQuery(kind domain.FeatureKind, box domain.BoundingBox) domain.FeatureQuery {
	return domain.FeatureQuery{Kind: kind, Box: box}
}

// OverpassQL renders q as an Overpass QL payload asking for ways and relations
// tagged with the feature kind, with full geometry. timeout is declared as the
// server-side limit in whole seconds.
func OverpassQL(q domain.FeatureQuery, timeout time.Duration) string {
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	bbox := fmt.Sprintf("%s,%s,%s,%s",
		formatCoord(q.Box.South), formatCoord(q.Box.West),
		formatCoord(q.Box.North), formatCoord(q.Box.East))

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n", secs)
	b.WriteString("(\n")
	fmt.Fprintf(&b, "  way[%q](%s);\n", string(q.Kind), bbox)
	fmt.Fprintf(&b, "  relation[%q](%s);\n", string(q.Kind), bbox)
	b.WriteString(");\n")
	b.WriteString("out geom;\n")
	return b.String()
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.7f", v)
}
