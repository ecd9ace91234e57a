package enums

import (
	"fmt"
	"strings"
)

type WineType string

const (
	WineTypeTinto     WineType = "tinto"
	WineTypeBlanco    WineType = "blanco"
	WineTypeRosado    WineType = "rosado"
	WineTypeEspumante WineType = "espumante"
	WineTypeDulce     WineType = "dulce"
)

var validWineTypes = []WineType{
	WineTypeTinto,
	WineTypeBlanco,
	WineTypeRosado,
	WineTypeEspumante,
	WineTypeDulce,
}

// String implements fmt.Stringer.
func (w WineType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WineType.
func (w WineType) IsValid() bool {
	for _, candidate := range validWineTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWineType accepts any casing and surrounding whitespace.
func ParseWineType(value string) (WineType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validWineTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wine type %q", value)
}
