package domain

import (
	"cmp"
	"slices"
	"unique"
)

// InternedString is a target name or source path held as a unique.Handle[string].
// Graphs repeat the same names in many dependency lists, and equal names compare by handle.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// String returns the underlying string value. The zero value is the empty string.
func (is InternedString) String() string {
	var zero unique.Handle[string]
	if is.h == zero {
		return ""
	}
	return is.h.Value()
}

// CompareInterned orders interned strings by their values.
func CompareInterned(a, b InternedString) int {
	if a == b {
		return 0
	}
	return cmp.Compare(a.String(), b.String())
}

// NewInternedStrings interns every element of ss, preserving order.
func NewInternedStrings(ss []string) []InternedString {
	out := make([]InternedString, len(ss))
	for i, s := range ss {
		out[i] = NewInternedString(s)
	}
	return out
}

// CanonicalInternedStrings interns ss sorted and without duplicates. An empty input yields nil.
func CanonicalInternedStrings(ss []string) []InternedString {
	if len(ss) == 0 {
		return nil
	}
	sorted := slices.Clone(ss)
	slices.Sort(sorted)
	return NewInternedStrings(slices.Compact(sorted))
}

// InternedValues returns the string values of is, preserving order.
func InternedValues(is []InternedString) []string {
	out := make([]string, len(is))
	for i, s := range is {
		out[i] = s.String()
	}
	return out
}
