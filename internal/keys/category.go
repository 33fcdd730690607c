package keys

import "fmt"

// Category is one of the six first-class object kinds. Each has its own id
// space per container.
type Category int

const (
	Channel Category = iota
	Graph
	Spectra
	Volume
	XYZ
	CurveMap
)

// NCategories is the number of categories.
const NCategories = 6

// Categories lists every category in display order.
var Categories = [NCategories]Category{Channel, Graph, Spectra, Volume, XYZ, CurveMap}

var categoryNames = [NCategories]string{"channel", "graph", "spectra", "volume", "xyz", "curvemap"}

func (c Category) String() string {
	if c.Valid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Valid reports whether c is one of the six categories.
func (c Category) Valid() bool {
	return c >= Channel && c <= CurveMap
}

// FirstID is the lowest valid id of the category. Graphs are numbered from 1,
// everything else from 0.
func (c Category) FirstID() int {
	if c == Graph {
		return 1
	}
	return 0
}

// ParseCategory parses a lowercase category name as produced by String.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("keys: unknown category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("keys: invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// AssocKind is an auxiliary binding addressed by the id of the primary
// object it decorates.
type AssocKind int

const (
	Mask AssocKind = iota
	BrickPreview
	LawnPreview
	RasterPreview
	View3D
)

// NAssocKinds is the number of association kinds.
const NAssocKinds = 5

// AssocKinds lists every association kind.
var AssocKinds = [NAssocKinds]AssocKind{Mask, BrickPreview, LawnPreview, RasterPreview, View3D}

var assocNames = [NAssocKinds]string{"mask", "brick-preview", "lawn-preview", "raster-preview", "3d-view"}

var assocOwners = [NAssocKinds]Category{Channel, Volume, CurveMap, XYZ, Channel}

func (k AssocKind) String() string {
	if k >= 0 && int(k) < NAssocKinds {
		return assocNames[k]
	}
	return fmt.Sprintf("assoc(%d)", int(k))
}

// Owner is the category whose ids the association is keyed by.
func (k AssocKind) Owner() Category {
	return assocOwners[k]
}

// Window reports whether the payload is a view handle rather than data.
// Window payloads are torn down through the view factory, data payloads are
// simply released.
func (k AssocKind) Window() bool {
	return k == View3D
}

// InStore reports whether the association mirrors a store key. Window
// associations are connected by the GUI layer and have no store value.
func (k AssocKind) InStore() bool {
	return !k.Window()
}

// PreviewKind returns the preview association of a category, if it has one.
func PreviewKind(c Category) (AssocKind, bool) {
	switch c {
	case Volume:
		return BrickPreview, true
	case CurveMap:
		return LawnPreview, true
	case XYZ:
		return RasterPreview, true
	}
	return 0, false
}
