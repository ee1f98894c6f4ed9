package scenario

import (
	"math/rand"
	"strings"
)

// SizeClass is a named bucket of object sizes. Objects of a class always live in the class container.
type SizeClass struct {
	Name      string
	SizeMin   int64
	SizeMax   int64
	Container string
	TypeChar  byte
	// CrudProfile overrides the scenario-wide profile for jobs of this size when set.
	CrudProfile []float64
}

// DefaultSizes is the fixed size table used when a scenario does not declare its own sizes.
var DefaultSizes = []SizeClass{
	{Name: "tiny", SizeMin: 99000, SizeMax: 99000, Container: "Picture", TypeChar: 'P'},
	{Name: "small", SizeMin: 4900000, SizeMax: 4900000, Container: "Audio", TypeChar: 'A'},
	{Name: "medium", SizeMin: 9900000, SizeMax: 9900000, Container: "Document", TypeChar: 'D'},
	{Name: "large", SizeMin: 101000000, SizeMax: 101000000, Container: "Video", TypeChar: 'V'},
	{Name: "huge", SizeMin: 1100000000, SizeMax: 1100000000, Container: "Application", TypeChar: 'L'},
}

func DefaultSize(name string) (SizeClass, bool) {
	for _, s := range DefaultSizes {
		if s.Name == name {
			return s, true
		}
	}
	return SizeClass{}, false
}

// declaredSize builds a size class from an explicit scenario entry.
func declaredSize(spec SizeSpec) SizeClass {
	typeChar := byte('X')
	if spec.Name != "" {
		typeChar = strings.ToUpper(spec.Name[:1])[0]
	}
	return SizeClass{
		Name:        spec.Name,
		SizeMin:     spec.SizeMin,
		SizeMax:     spec.SizeMax,
		Container:   "storebench_" + spec.Name,
		TypeChar:    typeChar,
		CrudProfile: spec.CrudProfile,
	}
}

// ObjectSize picks the size of a new object. Fixed-size classes never consult rng.
func (s SizeClass) ObjectSize(rng *rand.Rand) int64 {
	if s.SizeMax <= s.SizeMin || rng == nil {
		return s.SizeMin
	}
	return s.SizeMin + rng.Int63n(s.SizeMax-s.SizeMin+1)
}
