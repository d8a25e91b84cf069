package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownCategory is returned when a resource type string is not one of
// the four known categories.
var ErrUnknownCategory = errors.New("catalog: unknown category")

// Category is one of the resource enumerations the game reports drops in.
type Category int

const (
	MysekaiMaterial Category = iota + 1
	MysekaiItem
	Material
	MysekaiFixture
)

// Categories lists every known category in refresh order.
var Categories = []Category{MysekaiMaterial, MysekaiItem, Material, MysekaiFixture}

// String returns the wire name used in drop records ("mysekai_material").
func (c Category) String() string {
	switch c {
	case MysekaiMaterial:
		return "mysekai_material"
	case MysekaiItem:
		return "mysekai_item"
	case Material:
		return "material"
	case MysekaiFixture:
		return "mysekai_fixture"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label is the prefix of the placeholder name for ids missing from the tables.
func (c Category) Label() string {
	switch c {
	case MysekaiMaterial:
		return "MysekaiMaterial"
	case MysekaiItem:
		return "MysekaiItem"
	case Material:
		return "Material"
	case MysekaiFixture:
		return "MysekaiFixture"
	default:
		return "Unknown"
	}
}

// File is the master data file that lists names for this category.
func (c Category) File() string {
	switch c {
	case MysekaiMaterial:
		return "mysekaiMaterials.json"
	case MysekaiItem:
		return "mysekaiItems.json"
	case Material:
		return "materials.json"
	case MysekaiFixture:
		return "mysekaiFixtures.json"
	default:
		return ""
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= MysekaiMaterial && c <= MysekaiFixture
}

// ParseCategory maps a wire name to its category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, text)
	}
	*c = parsed
	return nil
}
