// Package workspace loads container files from the data directory into
// keyed stores registered with the browser, and keeps them in step with the
// files on disk.
package workspace

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/databrowser/internal/models"
	"github.com/starford/databrowser/internal/storage"
)

// Document is the on-disk layout of a container file.
//
//	items:
//	  - key: /0/data
//	    type: datafield
//	    value: {xres: 2, yres: 1, xreal: 1e-6, yreal: 5e-7, data: [0, 1]}
//	  - key: /0/data/title
//	    type: string
//	    value: Topography
type Document struct {
	Items []Item `yaml:"items"`
}

// Item is one store key with its typed value.
type Item struct {
	Key   string    `yaml:"key"`
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

// Entry is a decoded store value. Sum fingerprints the value so that a reload
// only touches keys whose content changed.
type Entry struct {
	Key   string
	Value any
	Sum   string
}

// ErrUnknownType is returned for items whose type is not supported.
var ErrUnknownType = errors.New("workspace: unknown item type")

type codec struct {
	decode func(n *yaml.Node) (any, error)
}

func decodeAs[T any](validate func(*T) error) codec {
	return codec{decode: func(n *yaml.Node) (any, error) {
		v := new(T)
		if err := n.Decode(v); err != nil {
			return nil, err
		}
		if validate != nil {
			if err := validate(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}}
}

func decodeScalar[T any]() codec {
	return codec{decode: func(n *yaml.Node) (any, error) {
		var v T
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}}
}

var codecs = map[string]codec{
	"string":    decodeScalar[string](),
	"bool":      decodeScalar[bool](),
	"int":       decodeScalar[int](),
	"float":     decodeScalar[float64](),
	"datafield": decodeAs(validateField),
	"graph":     decodeAs[models.GraphModel](nil),
	"spectra":   decodeAs[models.Spectra](nil),
	"brick":     decodeAs(validateBrick),
	"surface":   decodeAs[models.Surface](nil),
	"lawn":      decodeAs[models.Lawn](nil),
}

func validateField(f *models.DataField) error {
	if f.XRes <= 0 || f.YRes <= 0 {
		return fmt.Errorf("resolution %dx%d", f.XRes, f.YRes)
	}
	switch len(f.Data) {
	case 0:
		f.Data = make([]float64, f.XRes*f.YRes)
	case f.XRes * f.YRes:
	default:
		return fmt.Errorf("%d samples for %dx%d field", len(f.Data), f.XRes, f.YRes)
	}
	return nil
}

func validateBrick(b *models.Brick) error {
	n := b.XRes * b.YRes * b.ZRes
	if b.XRes <= 0 || b.YRes <= 0 || b.ZRes <= 0 {
		return fmt.Errorf("resolution %dx%dx%d", b.XRes, b.YRes, b.ZRes)
	}
	if len(b.Data) != 0 && len(b.Data) != n {
		return fmt.Errorf("%d samples for %d voxels", len(b.Data), n)
	}
	if len(b.Data) == 0 {
		b.Data = make([]float64, n)
	}
	return nil
}

// Decode parses a container file into store entries, in file order.
func Decode(data []byte) ([]Entry, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("workspace: decode: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Items))
	out := make([]Entry, 0, len(doc.Items))
	for i, it := range doc.Items {
		if !strings.HasPrefix(it.Key, "/") {
			return nil, fmt.Errorf("workspace: decode item %d: key %q is not absolute", i, it.Key)
		}
		if _, dup := seen[it.Key]; dup {
			return nil, fmt.Errorf("workspace: decode item %d: duplicate key %q", i, it.Key)
		}
		seen[it.Key] = struct{}{}

		c, ok := codecs[it.Type]
		if !ok {
			return nil, fmt.Errorf("workspace: decode %s: %w: %q", it.Key, ErrUnknownType, it.Type)
		}
		v, err := c.decode(&it.Value)
		if err != nil {
			return nil, fmt.Errorf("workspace: decode %s: %w", it.Key, err)
		}
		sum, err := fingerprint(it.Type, v)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: it.Key, Value: v, Sum: sum})
	}
	return out, nil
}

// typeName returns the item type of a store value.
func typeName(v any) (string, bool) {
	switch v.(type) {
	case string:
		return "string", true
	case bool:
		return "bool", true
	case int:
		return "int", true
	case float64:
		return "float", true
	case *models.DataField:
		return "datafield", true
	case *models.GraphModel:
		return "graph", true
	case *models.Spectra:
		return "spectra", true
	case *models.Brick:
		return "brick", true
	case *models.Surface:
		return "surface", true
	case *models.Lawn:
		return "lawn", true
	}
	return "", false
}

func fingerprint(typ string, v any) (string, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("workspace: fingerprint: %w", err)
	}
	return storage.Checksum(append([]byte(typ+"\n"), raw...)), nil
}

// Encode writes items as a container file with keys in ascending order.
// Values of unsupported types are skipped and reported by key.
func Encode(items map[string]any) ([]byte, []string, error) {
	var doc Document
	var skipped []string
	for _, key := range slices.Sorted(maps.Keys(items)) {
		v := items[key]
		typ, ok := typeName(v)
		if !ok {
			skipped = append(skipped, key)
			continue
		}
		it := Item{Key: key, Type: typ}
		if err := it.Value.Encode(v); err != nil {
			return nil, nil, fmt.Errorf("workspace: encode %s: %w", key, err)
		}
		doc.Items = append(doc.Items, it)
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, nil, fmt.Errorf("workspace: encode: %w", err)
	}
	return out, skipped, nil
}
