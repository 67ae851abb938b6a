// Package tagmint automates semantic-version releases of a GitHub hosted
// repository: it discovers the current tagged version of the working
// tree, bumps it, builds a changelog from closed issues and pull
// requests, commits, tags, pushes, creates the GitHub release record and
// closes the matching milestone.
package tagmint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tagmint/tagmint/changelog"
	"github.com/tagmint/tagmint/forge"
	"github.com/tagmint/tagmint/git"
	"github.com/tagmint/tagmint/logging"
	"github.com/tagmint/tagmint/notifier"
	"github.com/tagmint/tagmint/version"
)

// Name and Version identify the tool itself.
const (
	Name    = "tagmint"
	Version = "0.4.1"
)

// minGitVersion is the oldest git the release flow is known to work
// with.
var minGitVersion = version.New(1, 0, 0)

// ReleaseError reports a violated release precondition, such as a dirty
// working tree or a milestone with open issues.
type ReleaseError struct {
	Message string
}

func (e *ReleaseError) Error() string {
	return e.Message
}

// Inspector is the slice of git operations the release flow drives.
type Inspector interface {
	Version(ctx context.Context) (version.SemVer, error)
	CurrentVersion(ctx context.Context, path string) (version.RepoVersion, error)
	Repo(ctx context.Context, path string) (string, error)
	Root(ctx context.Context, path string) (string, error)
	TagDate(ctx context.Context, tag, path string) (time.Time, error)
	Commit(ctx context.Context, path, message string) error
	CreateTag(ctx context.Context, v version.SemVer, path, message string) error
	Push(ctx context.Context, path string) error
	PushTags(ctx context.Context, path string) error
}

// Forge is the GitHub API surface the release flow consumes.
type Forge interface {
	VersionMilestone(ctx context.Context, repo string, v version.SemVer) (*forge.Milestone, error)
	CloseMilestone(ctx context.Context, repo string, number int) error
	Issues(ctx context.Context, repo, state string, since time.Time) ([]forge.Issue, error)
	CreateRelease(ctx context.Context, repo string, v version.SemVer, body string) error
}

// Releaser runs the release sequence. Every step is fatal on failure and
// nothing is rolled back; a partial run leaves the repository in
// whatever state the completed steps produced.
type Releaser struct {
	config   Config
	git      Inspector
	forge    Forge
	notifier notifier.Notifier
	logger   *slog.Logger

	// ChangelogHook post-processes the rendered changelog entry before
	// it is written. Nil means identity.
	ChangelogHook func(string) string

	// Now supplies the release date, overridable in tests.
	Now func() time.Time
}

// New wires a Releaser from configuration with git resolved from PATH.
// The GitHub client and the notifier are not built until Release needs
// them, so inspecting the local version works without a token.
func New(c Config, logger *slog.Logger) (*Releaser, error) {
	if logger == nil {
		logger = logging.Quiet()
	}

	exe, err := git.LookPath("git")
	if err != nil {
		return nil, err
	}

	return &Releaser{
		config: c,
		git:    git.New(exe, nil, logger),
		logger: logger,
	}, nil
}

// NewWith wires a Releaser from explicit collaborators, used by tests.
func NewWith(c Config, g Inspector, f Forge, n notifier.Notifier, logger *slog.Logger) *Releaser {
	if logger == nil {
		logger = logging.Quiet()
	}
	if n == nil {
		n = &notifier.Null{}
	}
	return &Releaser{config: c, git: g, forge: f, notifier: n, logger: logger}
}

// CurrentVersion reports the repository version of the configured
// working tree.
func (r *Releaser) CurrentVersion(ctx context.Context) (version.RepoVersion, error) {
	return r.git.CurrentVersion(ctx, r.config.Path)
}

// NextVersion previews the version a release with the given category
// would produce.
func (r *Releaser) NextVersion(ctx context.Context, category version.Category) (version.SemVer, error) {
	cur, err := r.CurrentVersion(ctx)
	if err != nil {
		return version.SemVer{}, err
	}
	return cur.SemVer.Bump(category), nil
}

// Release performs the whole release sequence for one bump category and
// returns the released version. The sequence is strictly linear; the
// first failing step aborts the run and surfaces its error unchanged.
func (r *Releaser) Release(ctx context.Context, category version.Category) (version.SemVer, error) {
	r.logger.Debug("starting release", slog.String("category", category.String()))

	if r.forge == nil {
		gh, err := forge.New(r.config.Token, r.logger)
		if err != nil {
			return version.SemVer{}, err
		}
		r.forge = gh
	}
	if r.notifier == nil {
		ntf, err := notifier.New(r.config.Notify, r.logger)
		if err != nil {
			return version.SemVer{}, err
		}
		r.notifier = ntf
	}

	gitVersion, err := r.git.Version(ctx)
	if err != nil {
		return version.SemVer{}, err
	}
	if gitVersion.Less(minGitVersion) {
		return version.SemVer{}, &ReleaseError{
			Message: fmt.Sprintf("the version of git is too old: %s", gitVersion),
		}
	}

	previous, err := r.CurrentVersion(ctx)
	if err != nil {
		return version.SemVer{}, err
	}
	if previous.Dirty {
		return version.SemVer{}, &ReleaseError{
			Message: "cannot release a dirty repository, make sure all files are committed",
		}
	}

	current := previous.SemVer.Bump(category)
	r.logger.Debug("bumped version",
		slog.String("previous", previous.SemVer.String()),
		slog.String("current", current.String()))

	repo := r.config.Repo
	if repo == "" {
		if repo, err = r.git.Repo(ctx, r.config.Path); err != nil {
			return version.SemVer{}, err
		}
	}

	description := r.config.Description
	if description == "" {
		_, name, _ := strings.Cut(repo, "/")
		description = fmt.Sprintf("The v%s release of %s", current, name)
	}

	milestone, err := r.forge.VersionMilestone(ctx, repo, current)
	if err != nil {
		return version.SemVer{}, err
	}
	if milestone != nil && milestone.OpenIssues > 0 {
		return version.SemVer{}, &ReleaseError{
			Message: fmt.Sprintf("the v%s milestone has %d open issues", current, milestone.OpenIssues),
		}
	}

	entry, err := r.buildChangelog(ctx, repo, description, current, previous.SemVer, milestone)
	if err != nil {
		return version.SemVer{}, err
	}
	if r.ChangelogHook != nil {
		entry = r.ChangelogHook(entry)
	}

	root, err := r.git.Root(ctx, r.config.Path)
	if err != nil {
		return version.SemVer{}, err
	}

	changelogPath := filepath.Join(root, r.config.Changelog)
	if err := changelog.Write(changelogPath, entry); err != nil {
		return version.SemVer{}, err
	}
	r.logger.Info("wrote changelog", slog.String("path", changelogPath))

	if err := r.git.Commit(ctx, changelogPath, fmt.Sprintf("Updated changelog for v%s", current)); err != nil {
		return version.SemVer{}, err
	}

	if r.config.VersionFile != "" {
		versionPath := filepath.Join(root, r.config.VersionFile)
		if err := os.WriteFile(versionPath, []byte(current.String()), 0644); err != nil {
			return version.SemVer{}, err
		}
		r.logger.Info("wrote version file", slog.String("path", versionPath))
		if err := r.git.Commit(ctx, versionPath, fmt.Sprintf("Updated version to v%s", current)); err != nil {
			return version.SemVer{}, err
		}
	}

	if err := r.git.CreateTag(ctx, current, r.config.Path, description); err != nil {
		return version.SemVer{}, err
	}

	if err := r.git.Push(ctx, r.config.Path); err != nil {
		return version.SemVer{}, err
	}
	r.logger.Info("pushed branch to remote")

	if err := r.git.PushTags(ctx, r.config.Path); err != nil {
		return version.SemVer{}, err
	}
	r.logger.Info("pushed tags to remote")

	if err := r.forge.CreateRelease(ctx, repo, current, entry); err != nil {
		return version.SemVer{}, err
	}

	if milestone != nil {
		if err := r.forge.CloseMilestone(ctx, repo, milestone.Number); err != nil {
			return version.SemVer{}, err
		}
	}

	r.notifier.Send(ctx, fmt.Sprintf("Released v%s of %s", current, repo))
	r.logger.Info("released", slog.String("version", current.String()))
	return current, nil
}

func (r *Releaser) buildChangelog(ctx context.Context, repo, description string, current, previous version.SemVer, milestone *forge.Milestone) (string, error) {
	var since time.Time
	if !previous.Equal(version.SemVer{}) {
		// A failed tag date lookup only widens the issue window.
		if d, err := r.git.TagDate(ctx, "v"+previous.String(), r.config.Path); err == nil {
			since = d
		}
	}

	issues, err := r.forge.Issues(ctx, repo, "closed", since)
	if err != nil {
		return "", err
	}

	date := time.Now().UTC()
	if r.Now != nil {
		date = r.Now()
	}

	entry := changelog.NewEntry(current, previous, repo, description, date, milestone, issues)
	out, err := changelog.Render(entry)
	if err != nil {
		return "", err
	}
	r.logger.Info("rendered changelog", slog.String("version", current.String()))
	return out, nil
}
