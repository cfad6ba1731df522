// Package accessmode implements the closed AccessMode enum and the
// round-trippable AccessModeFlags set from spec.md §3: a typed bitset of
// transfer options requested at accessor construction.
package accessmode

import (
	"sort"
	"strings"

	"regaccess-go/regerr"
)

// Mode is one flag from the closed set. Unlike the source's C++ enum class,
// there is no risk of silently accepting an out-of-range value because Set
// only ever constructs Modes through Deserialize or the exported constants.
type Mode int

const (
	Raw Mode = iota
	WaitForNewData
)

var names = map[Mode]string{
	Raw:            "raw",
	WaitForNewData: "wait_for_new_data",
}

var byName = func() map[string]Mode {
	m := make(map[string]Mode, len(names))
	for k, v := range names {
		m[v] = k
	}
	return m
}()

func (m Mode) String() string { return names[m] }

// Set is a set of Mode flags with set-equality and a total order so it can
// key maps (catalogue.Descriptor embeds one).
type Set struct {
	bits uint8
}

func bit(m Mode) uint8 { return 1 << uint(m) }

// New builds a Set from individual flags.
func New(modes ...Mode) Set {
	var s Set
	for _, m := range modes {
		s.bits |= bit(m)
	}
	return s
}

// Has reports whether flag is in the set.
func (s Set) Has(m Mode) bool { return s.bits&bit(m) != 0 }

// Empty reports whether no flag has been set.
func (s Set) Empty() bool { return s.bits == 0 }

// Add returns a copy of s with m added.
func (s Set) Add(m Mode) Set { return Set{bits: s.bits | bit(m)} }

// Remove returns a copy of s with m removed.
func (s Set) Remove(m Mode) Set { return Set{bits: s.bits &^ bit(m)} }

// Equal reports set-equality.
func (s Set) Equal(o Set) bool { return s.bits == o.bits }

// Less gives a total order over Sets so they can be used as map/sort keys.
func (s Set) Less(o Set) bool { return s.bits < o.bits }

// CheckKnown raises a logic-error if s contains any flag not in knownFlags.
func (s Set) CheckKnown(knownFlags Set) error {
	if s.bits&^knownFlags.bits != 0 {
		return regerr.Logic("accessmode.CheckKnown", "flag set %q contains flags outside %q", s.Serialize(), knownFlags.Serialize())
	}
	return nil
}

// Serialize returns a comma-separated, order-stable textual form.
func (s Set) Serialize() string {
	var parts []string
	for m := Mode(0); int(m) < len(names); m++ {
		if s.Has(m) {
			parts = append(parts, names[m])
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Deserialize parses a comma-separated textual form. Unknown flag names
// fail with a logic-error, and Deserialize(Serialize(s)) == s for every
// representable s (spec.md §8 property 9).
func Deserialize(s string) (Set, error) {
	var out Set
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		m, ok := byName[tok]
		if !ok {
			return Set{}, regerr.Logic("accessmode.Deserialize", "unknown access mode flag %q", tok)
		}
		out = out.Add(m)
	}
	return out, nil
}
