package keys

import "fmt"

// Filename is the store key holding the container's file name.
const Filename = "/filename"

// PrimaryKey returns the key holding the payload of object id.
func PrimaryKey(c Category, id int) string {
	switch c {
	case Channel:
		return fmt.Sprintf("/%d/data", id)
	case Graph:
		return fmt.Sprintf("/0/graph/graph/%d", id)
	case Spectra:
		return fmt.Sprintf("/sps/%d", id)
	case Volume:
		return fmt.Sprintf("/brick/%d", id)
	case XYZ:
		return fmt.Sprintf("/xyz/%d", id)
	case CurveMap:
		return fmt.Sprintf("/lawn/%d", id)
	}
	panic(fmt.Sprintf("keys: invalid category %d", int(c)))
}

// TitleKey returns the key of the object's title attribute.
func TitleKey(c Category, id int) string {
	return PrimaryKey(c, id) + "/title"
}

// VisibleKey returns the key of the object's persisted visibility flag.
func VisibleKey(c Category, id int) string {
	return PrimaryKey(c, id) + "/visible"
}

// AssocKey returns the store key an association mirrors. For window kinds it
// returns the prefix of the window's setup keys.
func AssocKey(k AssocKind, owner int) string {
	switch k {
	case Mask:
		return fmt.Sprintf("/%d/mask", owner)
	case View3D:
		return fmt.Sprintf("/%d/3d", owner)
	}
	return PrimaryKey(k.Owner(), owner) + "/preview"
}

// ObjectPrefixes lists the key prefixes owned by an object; removing all of
// them removes the object together with its attributes and decorations.
func ObjectPrefixes(c Category, id int) []string {
	if c != Channel {
		return []string{PrimaryKey(c, id)}
	}
	prefixes := make([]string, 0, 7)
	for _, sub := range []string{"data", "mask", "show", "base", "3d", "select", "meta"} {
		prefixes = append(prefixes, fmt.Sprintf("/%d/%s", id, sub))
	}
	return prefixes
}
