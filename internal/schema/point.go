package schema

import (
	"github.com/utxoarchive/archive/internal/linkage"
	"github.com/utxoarchive/archive/internal/table"
)

// PointLinkWidth is the point table's own link width, grouped with
// header at 3 bytes.
const PointLinkWidth = linkage.Width(3)

// Point is a hash registry entity: every distinct previous-output tx
// hash referenced by a spend gets one point record, so an input can
// name its previous output as a compact point_fk + index pair instead
// of repeating a 32-byte hash. The hash itself is the hashmap's stored
// key; the record carries no payload. Link 0 is reserved for the null
// hash (coinbase inputs have no real previous output) and is inserted
// once at table bootstrap.
type Point struct{}

// PointCodec is a zero-size record: point's value is entirely its key.
func PointCodec() table.Codec[Point] {
	return table.Codec[Point]{
		Size:      0,
		Marshal:   func(Point) []byte { return nil },
		Unmarshal: func([]byte) (Point, int, error) { return Point{}, 0, nil },
	}
}
