package teltypes

// ObjKind distinguishes the object variants the coordinate kernel
// understands. Only FIXED is implemented here; richer ephemeris variants
// (solar-system bodies, TLE-driven satellites) are delegated to the
// external astronomical library.
type ObjKind int

const (
	ObjFixed ObjKind = iota
)

// Obj describes a celestial target.
type Obj struct {
	Kind  ObjKind
	RA    float64 // radians
	Dec   float64 // radians
	Epoch Epoch
	Name  string
}

// Scan is the currently running observation block.
type Scan struct {
	Target Obj
	Filter string

	StartJD float64
	EndJD   float64

	RAOffset  float64 // radians
	DecOffset float64 // radians
}
