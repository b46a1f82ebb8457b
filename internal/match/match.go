// Package match decides which ports may be cabled together.
//
// It works on plain Candidate values so the same predicate serves the
// candidate listing and the final re-validation inside link creation.
package match

import "strings"

// Direction is a port's declared cable direction.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionFrom Direction = "FROM"
	DirectionTo   Direction = "TO"
)

// ParseDirection normalizes a stored attribute value. Anything other than
// FROM or TO yields DirectionNone.
func ParseDirection(raw string) Direction {
	switch Direction(strings.ToUpper(strings.TrimSpace(raw))) {
	case DirectionFrom:
		return DirectionFrom
	case DirectionTo:
		return DirectionTo
	}
	return DirectionNone
}

// Valid reports whether d is FROM or TO.
func (d Direction) Valid() bool {
	return d == DirectionFrom || d == DirectionTo
}

// Complement returns the direction d must be paired with.
func (d Direction) Complement() Direction {
	switch d {
	case DirectionFrom:
		return DirectionTo
	case DirectionTo:
		return DirectionFrom
	}
	return DirectionNone
}

// Candidate is a port enriched with everything needed to judge it.
type Candidate struct {
	PortID       int64     `json:"port_id"`
	DeviceID     int64     `json:"device_id"`
	Name         string    `json:"name"`
	PortTypeID   *int64    `json:"port_type_id"`
	PortTypeName string    `json:"port_type_name"`
	RuleName     string    `json:"rule_name"`
	Direction    Direction `json:"direction"`
	MaxLinks     int       `json:"max_links"`
	LinkCount    int       `json:"link_count"`
	ChildCount   int       `json:"child_count"`
	IsActive     bool      `json:"is_active"`
}

// Structural reports whether the port has children and is therefore not
// directly connectable.
func (c Candidate) Structural() bool {
	return c.ChildCount > 0
}

// HasCapacity reports whether another link fits on the port.
func (c Candidate) HasCapacity() bool {
	return c.LinkCount < c.MaxLinks
}

// Available reports whether the port can take a new link at all.
func (c Candidate) Available() bool {
	return c.IsActive && !c.Structural() && c.HasCapacity()
}

// NormalizeRuleName maps a nullable rule name to its comparison form.
func NormalizeRuleName(name *string) string {
	if name == nil {
		return ""
	}
	return strings.TrimSpace(*name)
}

// SameType compares nullable port type references; nil equals nil.
func SameType(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Compatible is the structural pairing predicate. When directional is true
// both ports need a valid direction and the two must be complementary.
// Availability is not checked here.
func Compatible(l, r Candidate, directional bool) bool {
	if !SameType(l.PortTypeID, r.PortTypeID) {
		return false
	}
	if l.RuleName != r.RuleName {
		return false
	}
	if directional {
		return l.Direction.Valid() && r.Direction == l.Direction.Complement()
	}
	return true
}

// key indexes right-hand ports by what a left-hand port must match.
type key struct {
	typeID    int64
	hasType   bool
	ruleName  string
	direction Direction
}

func keyOf(c Candidate, dir Direction) key {
	k := key{ruleName: c.RuleName, direction: dir}
	if c.PortTypeID != nil {
		k.typeID, k.hasType = *c.PortTypeID, true
	}
	return k
}

// Pairs returns the left ports that have at least one available compatible
// partner on the right, and the right ports referenced by those left ports.
// Both results keep the input order. Ineligible ports are dropped silently.
func Pairs(left, right []Candidate, directional bool) (l, r []Candidate) {
	l, r = []Candidate{}, []Candidate{}

	index := make(map[key][]int64)
	for _, c := range right {
		if !c.Available() {
			continue
		}
		if directional && !c.Direction.Valid() {
			continue
		}
		dir := DirectionNone
		if directional {
			dir = c.Direction
		}
		k := keyOf(c, dir)
		index[k] = append(index[k], c.PortID)
	}

	allowed := make(map[int64]bool)
	for _, c := range left {
		if !c.Available() {
			continue
		}
		want := DirectionNone
		if directional {
			if !c.Direction.Valid() {
				continue
			}
			want = c.Direction.Complement()
		}
		ids := index[keyOf(c, want)]
		if len(ids) == 0 {
			continue
		}
		l = append(l, c)
		for _, id := range ids {
			allowed[id] = true
		}
	}

	for _, c := range right {
		if allowed[c.PortID] {
			r = append(r, c)
		}
	}
	return l, r
}
