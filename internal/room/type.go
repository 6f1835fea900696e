package room

import "fmt"

// Type tags what a room is used for in the level
type Type int

const (
	TypeStart Type = iota
	TypeEmpty
	TypeEnemy
	TypeTrap
	TypeFragment
	TypeBoss
	TypeHealing
)

// String returns the string representation of a Type
func (t Type) String() string {
	switch t {
	case TypeStart:
		return "start"
	case TypeEmpty:
		return "empty"
	case TypeEnemy:
		return "enemy"
	case TypeTrap:
		return "trap"
	case TypeFragment:
		return "fragment"
	case TypeBoss:
		return "boss"
	case TypeHealing:
		return "healing"
	default:
		return "unknown"
	}
}

// ParseType converts a string to a Type
func ParseType(s string) (Type, error) {
	switch s {
	case "start":
		return TypeStart, nil
	case "empty":
		return TypeEmpty, nil
	case "enemy":
		return TypeEnemy, nil
	case "trap":
		return TypeTrap, nil
	case "fragment":
		return TypeFragment, nil
	case "boss":
		return TypeBoss, nil
	case "healing":
		return TypeHealing, nil
	default:
		return TypeEmpty, fmt.Errorf("room: unknown room type %q", s)
	}
}

// PoolTypes lists the categories that hold placeable templates, in the
// order their pools are concatenated for random selection.
func PoolTypes() []Type {
	return []Type{TypeEmpty, TypeEnemy, TypeHealing, TypeTrap, TypeFragment, TypeBoss}
}
