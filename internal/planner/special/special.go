// Package special models the seven primary attributes and their base
// allocation.
package special

import (
	"fmt"
	"strings"
)

type Attribute int

const (
	Strength Attribute = iota
	Perception
	Endurance
	Charisma
	Intelligence
	Agility
	Luck
)

// Count is the number of primary attributes.
const Count = 7

var names = [Count]string{
	"Strength",
	"Perception",
	"Endurance",
	"Charisma",
	"Intelligence",
	"Agility",
	"Luck",
}

// All lists the attributes in sheet order.
var All = [Count]Attribute{Strength, Perception, Endurance, Charisma, Intelligence, Agility, Luck}

func (a Attribute) Valid() bool { return a >= 0 && int(a) < Count }

func (a Attribute) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
	return names[a]
}

// Letter is the single-letter abbreviation used in compact tables.
func (a Attribute) Letter() string {
	if !a.Valid() {
		return "?"
	}
	return names[a][:1]
}

// Parse accepts a full name or any prefix of one, case-insensitively.
func Parse(s string) (Attribute, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return 0, fmt.Errorf("empty attribute name")
	}
	for _, a := range All {
		if strings.HasPrefix(strings.ToLower(names[a]), lower) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("invalid attribute: %s", s)
}

func (a Attribute) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid attribute %d", int(a))
	}
	return []byte(strings.ToLower(names[a])), nil
}

func (a *Attribute) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
