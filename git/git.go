// Package git inspects and mutates a local git working tree through an
// injected command.Runner. It never talks to the network itself; push is
// delegated to the git tool like everything else.
package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/cli/safeexec"

	"github.com/tagmint/tagmint/command"
	"github.com/tagmint/tagmint/version"
)

const tagDateLayout = "2006-01-02 15:04:05 -0700"

var (
	describeRe = regexp.MustCompile(`^v(\d+)\.(\d+)\.(\d+)(?:-\d+-g[0-9a-f]+)?`)
	fetchURLRe = regexp.MustCompile(`Fetch URL: (?:(?:(git)(?:@))|(?:(https)(?:://)))([^:/\s]+)[:/]([^/\s]+/[^.\s]+)(?:\.git)?`)
	versionRe  = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)
)

// ToolNotFoundError is returned when the git executable cannot be found
// in the search path.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found in PATH, is it installed?", e.Name)
}

// RemoteParseError is returned when the origin remote's fetch URL does
// not look like a forge repository URL.
type RemoteParseError struct {
	Output string
}

func (e *RemoteParseError) Error() string {
	return fmt.Sprintf("failed to match fetch url in remote info: %s", strings.TrimSpace(e.Output))
}

// UnsupportedHostError is returned when the remote points at a host other
// than github.com.
type UnsupportedHostError struct {
	Host string
}

func (e *UnsupportedHostError) Error() string {
	return fmt.Sprintf("repository remote is not github.com: %s", e.Host)
}

// FindExeInPath returns the existing candidates for an executable in a
// PATH-like search string. An empty path argument means the process PATH.
// A missing executable yields an empty list, not an error.
func FindExeInPath(name, path string) []string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(name, ".exe") {
		name += ".exe"
	}
	if path == "" {
		path = os.Getenv("PATH")
	}

	var found []string
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			continue
		}
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}

// LookPath resolves the first matching executable, refusing relative-path
// results on Windows the way safeexec does.
func LookPath(name string) (string, error) {
	p, err := safeexec.LookPath(name)
	if err != nil {
		return "", &ToolNotFoundError{Name: name}
	}
	return p, nil
}

// Git drives a git executable against working trees.
type Git struct {
	exe    string
	runner command.Runner
	logger *slog.Logger
}

// New returns a Git for the given executable path. The executable is
// accepted as-is; use LookPath to resolve one from PATH.
func New(exe string, runner command.Runner, logger *slog.Logger) *Git {
	if runner == nil {
		runner = command.Exec{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Git{exe: exe, runner: runner, logger: logger}
}

func (g *Git) run(ctx context.Context, dir string, expect *int, args ...string) (command.Result, error) {
	g.logger.Debug("running git", slog.String("dir", dir), slog.Any("args", args))
	return g.runner.Run(ctx, dir, expect, g.exe, args...)
}

// CurrentVersion resolves the repository version of the working tree at
// path: the latest reachable v-prefixed tag, the HEAD commit and the
// dirty state. A repository without any matching tag reports 0.0.0 and a
// repository without commits reports the zero commit.
func (g *Git) CurrentVersion(ctx context.Context, path string) (version.RepoVersion, error) {
	res, err := g.run(ctx, path, command.Expect(0), "rev-parse", "HEAD")
	if err != nil {
		return version.RepoVersion{}, err
	}
	commit := strings.TrimSpace(strings.SplitN(res.Stdout, "\n", 2)[0])
	if commit == "HEAD" || commit == "" {
		commit = version.ZeroCommit
	}

	dirty := false
	res, err = g.run(ctx, path, command.Expect(0), "diff-index", "--name-only", "HEAD")
	if err != nil {
		return version.RepoVersion{}, err
	}
	if res.Stdout != "" {
		dirty = true
	}
	res, err = g.run(ctx, path, command.Expect(0), "status", "--porcelain")
	if err != nil {
		return version.RepoVersion{}, err
	}
	if strings.Contains(res.Stdout, "?? ") {
		dirty = true
	}

	res, err = g.run(ctx, path, command.Any(), "describe", "--match=v[0-9]*", "HEAD")
	if err != nil {
		return version.RepoVersion{}, err
	}
	if res.Code != 0 {
		// No version tag reachable yet.
		return version.NewRepo(version.SemVer{}, commit, dirty)
	}

	match := describeRe.FindStringSubmatch(strings.TrimSpace(res.Stdout))
	if match == nil {
		return version.RepoVersion{}, &version.FormatError{Input: strings.TrimSpace(res.Stdout)}
	}
	v, err := version.Parse(fmt.Sprintf("%s.%s.%s", match[1], match[2], match[3]))
	if err != nil {
		return version.RepoVersion{}, err
	}

	rv, err := version.NewRepo(v, commit, dirty)
	if err != nil {
		return version.RepoVersion{}, err
	}
	g.logger.Info("resolved repository version", slog.String("version", rv.String()))
	return rv, nil
}

// Repo derives the "owner/name" identity from the origin remote's fetch
// URL. Both SSH and HTTPS remotes are understood.
func (g *Git) Repo(ctx context.Context, path string) (string, error) {
	res, err := g.run(ctx, path, command.Expect(0), "remote", "show", "-n", "origin")
	if err != nil {
		return "", err
	}

	match := fetchURLRe.FindStringSubmatch(res.Stdout)
	if match == nil {
		return "", &RemoteParseError{Output: res.Stdout}
	}
	if host := match[3]; host != "github.com" {
		return "", &UnsupportedHostError{Host: host}
	}
	return match[4], nil
}

// Version parses the version of the git tool itself.
func (g *Git) Version(ctx context.Context) (version.SemVer, error) {
	res, err := g.run(ctx, "", command.Expect(0), "--version")
	if err != nil {
		return version.SemVer{}, err
	}
	match := versionRe.FindString(res.Stdout)
	if match == "" {
		return version.SemVer{}, &version.FormatError{Input: strings.TrimSpace(res.Stdout)}
	}
	return version.Parse(match)
}

// Root resolves the top level directory of the working tree containing
// path. A file path is first reduced to its directory.
func (g *Git) Root(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(abs); err == nil && !fi.IsDir() {
		abs = filepath.Dir(abs)
	}

	res, err := g.run(ctx, abs, command.Expect(0), "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// TagDate returns the authored date of the commit a tag points at.
func (g *Git) TagDate(ctx context.Context, tag, path string) (time.Time, error) {
	root, err := g.Root(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	res, err := g.run(ctx, root, command.Expect(0), "log", "-1", "--format=%ai", tag)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(tagDateLayout, strings.TrimSpace(res.Stdout))
}

// Commit stages exactly the given file and commits it with message.
func (g *Git) Commit(ctx context.Context, path, message string) error {
	root, err := g.Root(ctx, path)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return err
	}

	if _, err := g.run(ctx, root, command.Expect(0), "add", rel); err != nil {
		return err
	}
	if _, err := g.run(ctx, root, command.Expect(0), "commit", "-m", message); err != nil {
		return err
	}
	g.logger.Info("committed", slog.String("path", rel))
	return nil
}

// CreateTag creates the annotated tag v<version> on HEAD.
func (g *Git) CreateTag(ctx context.Context, v version.SemVer, path, message string) error {
	root, err := g.Root(ctx, path)
	if err != nil {
		return err
	}
	if message == "" {
		message = fmt.Sprintf("The v%s release of the project", v)
	}
	if _, err := g.run(ctx, root, command.Expect(0), "tag", "-a", "v"+v.String(), "-m", message); err != nil {
		return err
	}
	g.logger.Info("tagged", slog.String("tag", "v"+v.String()))
	return nil
}

// Push pushes the current branch to its remote.
func (g *Git) Push(ctx context.Context, path string) error {
	root, err := g.Root(ctx, path)
	if err != nil {
		return err
	}
	_, err = g.run(ctx, root, command.Expect(0), "push")
	return err
}

// PushTags pushes tags to the remote. Independent of Push; the two are
// not atomic.
func (g *Git) PushTags(ctx context.Context, path string) error {
	root, err := g.Root(ctx, path)
	if err != nil {
		return err
	}
	_, err = g.run(ctx, root, command.Expect(0), "push", "--tags")
	return err
}
