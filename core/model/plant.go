package model

// PointType classifies points of the plant model.
type PointType int

const (
	PointTypeHalt PointType = iota
	PointTypePark
)

// Point is a node of the driving course.
type Point struct {
	Name string
	Type PointType
}

// IsParkingPosition reports whether vehicles may park on this point.
func (p Point) IsParkingPosition() bool { return p.Type == PointTypePark }

// Path is a directed connection between two points.
type Path struct {
	Name        string
	Source      string
	Destination string
	Length      int64
	Locked      bool
}

// LocationType groups locations with the same allowed operations.
type LocationType struct {
	Name string
}

// Location is a station vehicles operate at, linked to one or more points.
type Location struct {
	Name   string
	Type   string
	Locked bool
	Links  []string
}
