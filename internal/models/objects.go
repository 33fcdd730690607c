// Package models defines the payload types stored in data containers.
package models

import "github.com/starford/databrowser/internal/keys"

// DataField is a regular two-dimensional sampled field: channel data, masks,
// presentations and the raster previews of volume, XYZ and curve map data.
type DataField struct {
	Notifier `yaml:"-" json:"-"`

	XRes   int       `yaml:"xres" json:"xres"`
	YRes   int       `yaml:"yres" json:"yres"`
	XReal  float64   `yaml:"xreal" json:"xreal"`
	YReal  float64   `yaml:"yreal" json:"yreal"`
	UnitXY string    `yaml:"unit_xy,omitempty" json:"unit_xy,omitempty"`
	UnitZ  string    `yaml:"unit_z,omitempty" json:"unit_z,omitempty"`
	Data   []float64 `yaml:"data,flow" json:"data"`
}

// NewDataField creates a zero-filled field.
func NewDataField(xres, yres int, xreal, yreal float64) *DataField {
	return &DataField{
		XRes:  xres,
		YRes:  yres,
		XReal: xreal,
		YReal: yreal,
		Data:  make([]float64, xres*yres),
	}
}

// Curve is one curve of a graph.
type Curve struct {
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	X           []float64 `yaml:"x,flow" json:"x"`
	Y           []float64 `yaml:"y,flow" json:"y"`
}

// GraphModel is a set of curves sharing axes.
type GraphModel struct {
	Notifier `yaml:"-" json:"-"`

	Title  string  `yaml:"title,omitempty" json:"title,omitempty"`
	XLabel string  `yaml:"x_label,omitempty" json:"x_label,omitempty"`
	YLabel string  `yaml:"y_label,omitempty" json:"y_label,omitempty"`
	Curves []Curve `yaml:"curves" json:"curves"`
}

// SpectrumPoint is one spectrum measured at a location.
type SpectrumPoint struct {
	X        float64   `yaml:"x" json:"x"`
	Y        float64   `yaml:"y" json:"y"`
	Abscissa []float64 `yaml:"abscissa,flow" json:"abscissa"`
	Ordinate []float64 `yaml:"ordinate,flow" json:"ordinate"`
}

// Spectra is a set of point spectra.
type Spectra struct {
	Notifier `yaml:"-" json:"-"`

	Title  string          `yaml:"title,omitempty" json:"title,omitempty"`
	Points []SpectrumPoint `yaml:"points" json:"points"`
}

// Brick is a three-dimensional regular volume.
type Brick struct {
	Notifier `yaml:"-" json:"-"`

	XRes  int       `yaml:"xres" json:"xres"`
	YRes  int       `yaml:"yres" json:"yres"`
	ZRes  int       `yaml:"zres" json:"zres"`
	XReal float64   `yaml:"xreal" json:"xreal"`
	YReal float64   `yaml:"yreal" json:"yreal"`
	ZReal float64   `yaml:"zreal" json:"zreal"`
	Data  []float64 `yaml:"data,flow" json:"data"`
}

// XYZPoint is one irregularly placed sample.
type XYZPoint struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Surface is an irregular XYZ point cloud.
type Surface struct {
	Notifier `yaml:"-" json:"-"`

	Points []XYZPoint `yaml:"points" json:"points"`
}

// Lawn is a curve map: a set of curves on a regular XY grid.
type Lawn struct {
	Notifier `yaml:"-" json:"-"`

	XRes   int         `yaml:"xres" json:"xres"`
	YRes   int         `yaml:"yres" json:"yres"`
	XReal  float64     `yaml:"xreal" json:"xreal"`
	YReal  float64     `yaml:"yreal" json:"yreal"`
	Curves [][]float64 `yaml:"curves" json:"curves"`
}

// MatchesCategory reports whether v is the payload type stored under primary
// keys of category c.
func MatchesCategory(c keys.Category, v any) bool {
	switch c {
	case keys.Channel:
		_, ok := v.(*DataField)
		return ok
	case keys.Graph:
		_, ok := v.(*GraphModel)
		return ok
	case keys.Spectra:
		_, ok := v.(*Spectra)
		return ok
	case keys.Volume:
		_, ok := v.(*Brick)
		return ok
	case keys.XYZ:
		_, ok := v.(*Surface)
		return ok
	case keys.CurveMap:
		_, ok := v.(*Lawn)
		return ok
	}
	return false
}

// MatchesAssoc reports whether v is a valid payload for a store-backed
// association kind. Masks and previews are all data fields.
func MatchesAssoc(k keys.AssocKind, v any) bool {
	if !k.InStore() {
		return false
	}
	_, ok := v.(*DataField)
	return ok
}

// Title returns the title a payload carries itself, if any.
func Title(v any) string {
	switch p := v.(type) {
	case *GraphModel:
		return p.Title
	case *Spectra:
		return p.Title
	}
	return ""
}
