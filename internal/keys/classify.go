// Package keys classifies structured store keys into the object they address.
//
// Classification is a pure function of the key string. Keys outside the
// grammar below are Unrecognized, which callers treat as ordinary traffic and
// ignore.
//
//	/N/data                      channel N
//	/N/data/{title,visible,log}  channel N attributes
//	/N/mask                      mask of channel N
//	/N/show                      presentation of channel N
//	/N/base/{palette,range-type,min,max}
//	/N/3d/...                    3D view setup of channel N
//	/0/graph/graph/N[/title|/visible]   graph N, N >= 1
//	/sps/N[/title|/visible]
//	/{brick,xyz,lawn}/N[/title|/visible|/log|/preview|/preview/palette]
package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tells which table a classified key routes to.
type Kind int

const (
	Unrecognized Kind = iota
	Object
	Association
)

// Sub is the role of a key relative to the object it addresses.
type Sub int

const (
	SubPrimary Sub = iota
	SubTitle
	SubVisible
	SubShow
	SubPalette
	SubRange
	SubLog
	SubSetup
)

var subNames = [...]string{"primary", "title", "visible", "show", "palette", "range", "log", "setup"}

func (s Sub) String() string {
	if s >= 0 && int(s) < len(subNames) {
		return subNames[s]
	}
	return fmt.Sprintf("sub(%d)", int(s))
}

// Key is the result of Classify. For Kind == Association, ID is the owner id
// and Category is the owner category.
type Key struct {
	Kind     Kind
	Category Category
	ID       int
	Sub      Sub
	Assoc    AssocKind
}

// Primary reports whether the key holds the object payload itself.
func (k Key) Primary() bool {
	return k.Kind == Object && k.Sub == SubPrimary
}

func (k Key) String() string {
	switch k.Kind {
	case Object:
		return fmt.Sprintf("%s:%d/%s", k.Category, k.ID, k.Sub)
	case Association:
		return fmt.Sprintf("%s:%d/%s", k.Assoc, k.ID, k.Sub)
	}
	return "unrecognized"
}

const maxIDDigits = 9

// parseID accepts canonical non-negative decimals only: no sign, no leading
// zeros, at most maxIDDigits digits.
func parseID(s string) (int, bool) {
	if s == "" || len(s) > maxIDDigits {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

var prefixCategories = map[string]Category{
	"sps":   Spectra,
	"brick": Volume,
	"xyz":   XYZ,
	"lawn":  CurveMap,
}

// Classify maps a store key to the object or association it addresses.
func Classify(key string) Key {
	if len(key) < 2 || key[0] != '/' {
		return Key{}
	}
	parts := strings.Split(key[1:], "/")
	if c, ok := prefixCategories[parts[0]]; ok {
		return classifyPrefixed(c, parts[1:])
	}
	n, ok := parseID(parts[0])
	if !ok || len(parts) < 2 {
		return Key{}
	}
	return classifyNumbered(n, parts[1:])
}

// classifyNumbered handles keys under /N/: channel data and its decorations,
// and the graph subtree that lives under /0/.
func classifyNumbered(n int, rest []string) Key {
	obj := func(sub Sub) Key {
		return Key{Kind: Object, Category: Channel, ID: n, Sub: sub}
	}
	switch rest[0] {
	case "data":
		switch {
		case len(rest) == 1:
			return obj(SubPrimary)
		case len(rest) > 2:
			return Key{}
		case rest[1] == "title":
			return obj(SubTitle)
		case rest[1] == "visible":
			return obj(SubVisible)
		case rest[1] == "log":
			return obj(SubLog)
		}
	case "mask":
		if len(rest) == 1 {
			return Key{Kind: Association, Category: Channel, ID: n, Assoc: Mask}
		}
	case "show":
		if len(rest) == 1 {
			return obj(SubShow)
		}
	case "base":
		if len(rest) != 2 {
			return Key{}
		}
		switch rest[1] {
		case "palette":
			return obj(SubPalette)
		case "range-type", "min", "max":
			return obj(SubRange)
		}
	case "3d":
		if len(rest) >= 2 && rest[1] != "" {
			return Key{Kind: Association, Category: Channel, ID: n, Sub: SubSetup, Assoc: View3D}
		}
	case "graph":
		if n == 0 {
			return classifyGraph(rest[1:])
		}
	}
	return Key{}
}

// classifyGraph handles /0/graph/graph/N. Graph ids start at 1.
func classifyGraph(rest []string) Key {
	if len(rest) < 2 || len(rest) > 3 || rest[0] != "graph" {
		return Key{}
	}
	id, ok := parseID(rest[1])
	if !ok || id < Graph.FirstID() {
		return Key{}
	}
	k := Key{Kind: Object, Category: Graph, ID: id}
	if len(rest) == 2 {
		return k
	}
	switch rest[2] {
	case "title":
		k.Sub = SubTitle
	case "visible":
		k.Sub = SubVisible
	default:
		return Key{}
	}
	return k
}

// classifyPrefixed handles /sps/N, /brick/N, /xyz/N and /lawn/N subtrees.
func classifyPrefixed(c Category, rest []string) Key {
	if len(rest) == 0 {
		return Key{}
	}
	id, ok := parseID(rest[0])
	if !ok {
		return Key{}
	}
	k := Key{Kind: Object, Category: c, ID: id}
	rest = rest[1:]
	if len(rest) == 0 {
		return k
	}
	preview, hasPreview := PreviewKind(c)
	switch {
	case len(rest) == 1 && rest[0] == "title":
		k.Sub = SubTitle
	case len(rest) == 1 && rest[0] == "visible":
		k.Sub = SubVisible
	case len(rest) == 1 && rest[0] == "log" && hasPreview:
		k.Sub = SubLog
	case len(rest) == 1 && rest[0] == "preview" && hasPreview:
		return Key{Kind: Association, Category: c, ID: id, Assoc: preview}
	case len(rest) == 2 && rest[0] == "preview" && rest[1] == "palette" && hasPreview:
		k.Sub = SubPalette
	default:
		return Key{}
	}
	return k
}
