package version

import (
	"fmt"
	"regexp"
)

// ZeroCommit is the commit placeholder for a repository with no history,
// the all-zero form of a full SHA-1 hash.
const ZeroCommit = "0000000000000000000000000000000000000000"

var (
	repoRe = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:\.(?P<commit>[^.]+?)(?:-(?P<dirty>dirty))?)?$`)
	hexRe  = regexp.MustCompile(`^[0-9a-fA-F]+$`)
)

// ValidationError is returned when a field of a repository version fails
// validation, such as a commit string that is not hexadecimal.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Value)
}

// RepoVersion is a SemVer extended with the state of the working tree it
// was read from: the HEAD commit hash and whether the tree had
// uncommitted or untracked changes. Commit and Dirty do not participate
// in ordering.
type RepoVersion struct {
	SemVer
	Commit string
	Dirty  bool
}

// NewRepo builds a RepoVersion and validates the commit string. An empty
// commit defaults to ZeroCommit.
func NewRepo(v SemVer, commit string, dirty bool) (RepoVersion, error) {
	if commit == "" {
		commit = ZeroCommit
	}
	if !hexRe.MatchString(commit) {
		return RepoVersion{}, &ValidationError{Field: "commit", Value: commit}
	}
	return RepoVersion{SemVer: v, Commit: commit, Dirty: dirty}, nil
}

// ParseRepo parses the combined "MAJOR.MINOR.PATCH[.COMMIT[-dirty]]" form.
// A missing commit field defaults to ZeroCommit and a missing dirty
// marker means clean.
func ParseRepo(s string) (RepoVersion, error) {
	match := repoRe.FindStringSubmatch(s)
	if match == nil {
		return RepoVersion{}, &FormatError{Input: s}
	}

	v, err := Parse(fmt.Sprintf("%s.%s.%s", match[1], match[2], match[3]))
	if err != nil {
		return RepoVersion{}, err
	}

	commit := match[repoRe.SubexpIndex("commit")]
	dirty := match[repoRe.SubexpIndex("dirty")] != ""
	return NewRepo(v, commit, dirty)
}

// String renders the canonical form with the commit truncated to its
// first 8 characters. The stored commit keeps its full length.
func (v RepoVersion) String() string {
	commit := v.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	s := fmt.Sprintf("%s.%s", v.SemVer.String(), commit)
	if v.Dirty {
		s += "-dirty"
	}
	return s
}
