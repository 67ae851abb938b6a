package version

import (
	"fmt"
	"regexp"
	"strconv"
)

var semverRe = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)$`)

// FormatError is returned when a version string or record cannot be
// interpreted as a semantic version.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid version format: %s", e.Input)
}

// InvalidCategoryError is returned when a bump category is not one of
// major, minor or patch.
type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid bump category: %s", e.Category)
}

// Category selects which component of a version a bump increments.
type Category int

const (
	Major Category = iota
	Minor
	Patch
)

// ParseCategory parses a textual bump category.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	}
	return 0, &InvalidCategoryError{Category: s}
}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Patch:
		return "patch"
	}
	return "unknown"
}

// SemVer is a three component semantic version. The zero value is 0.0.0.
type SemVer struct {
	Major int
	Minor int
	Patch int
}

// New returns a SemVer from its three components.
func New(major, minor, patch int) SemVer {
	return SemVer{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a "MAJOR.MINOR.PATCH" string. A leading "v" is tolerated.
func Parse(s string) (SemVer, error) {
	match := semverRe.FindStringSubmatch(s)
	if match == nil {
		return SemVer{}, &FormatError{Input: s}
	}

	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])
	patch, _ := strconv.Atoi(match[3])

	return SemVer{Major: major, Minor: minor, Patch: patch}, nil
}

// FromMap builds a SemVer from a keyed record with major, minor and patch
// entries.
func FromMap(m map[string]int) (SemVer, error) {
	var v SemVer
	var ok bool
	if v.Major, ok = m["major"]; !ok {
		return SemVer{}, &FormatError{Input: fmt.Sprintf("%v", m)}
	}
	if v.Minor, ok = m["minor"]; !ok {
		return SemVer{}, &FormatError{Input: fmt.Sprintf("%v", m)}
	}
	if v.Patch, ok = m["patch"]; !ok {
		return SemVer{}, &FormatError{Input: fmt.Sprintf("%v", m)}
	}
	if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return SemVer{}, &FormatError{Input: fmt.Sprintf("%v", m)}
	}
	return v, nil
}

// Bump returns a new version with the given component incremented. Bumping
// major resets minor and patch, bumping minor resets patch.
func (v SemVer) Bump(c Category) SemVer {
	switch c {
	case Major:
		return SemVer{Major: v.Major + 1}
	case Minor:
		return SemVer{Major: v.Major, Minor: v.Minor + 1}
	default:
		return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}

// Compare returns a negative number, zero, or a positive number when v is
// ordered before, equal to, or after other.
func (v SemVer) Compare(other SemVer) int {
	if v.Major != other.Major {
		return v.Major - other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor - other.Minor
	}
	return v.Patch - other.Patch
}

// Less reports whether v is ordered before other.
func (v SemVer) Less(other SemVer) bool {
	return v.Compare(other) < 0
}

// Equal reports whether the two triples are identical.
func (v SemVer) Equal(other SemVer) bool {
	return v.Compare(other) == 0
}

// Component returns the component at index 0 (major), 1 (minor) or
// 2 (patch).
func (v SemVer) Component(i int) (int, error) {
	switch i {
	case 0:
		return v.Major, nil
	case 1:
		return v.Minor, nil
	case 2:
		return v.Patch, nil
	}
	return 0, fmt.Errorf("version component index out of range: %d", i)
}

// String returns the canonical "MAJOR.MINOR.PATCH" form.
func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
