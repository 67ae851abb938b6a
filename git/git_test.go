package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tagmint/tagmint/command"
	"github.com/tagmint/tagmint/version"
)

// fakeRunner resolves commands from a canned table, keyed by the joined
// argument list.
type fakeRunner struct {
	responses map[string]command.Result
	calls     []string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, expect *int, name string, args ...string) (command.Result, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)

	res, ok := f.responses[key]
	if !ok {
		return command.Result{}, &command.ExecError{Cmd: append([]string{name}, args...), Code: -1}
	}
	if expect != nil && res.Code != *expect {
		return res, &command.ExecError{Cmd: append([]string{name}, args...), Code: res.Code, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	return res, nil
}

const headCommit = "4ed39a874271379d11ec8e0e03b24be2a2f611d5"

func cleanRepoResponses() map[string]command.Result {
	return map[string]command.Result{
		"rev-parse HEAD":              {Stdout: headCommit + "\n"},
		"diff-index --name-only HEAD": {},
		"status --porcelain":          {},
		"describe --match=v[0-9]* HEAD": {
			Stdout: "v1.2.3-4-g4ed39a8\n",
		},
	}
}

func TestCurrentVersion(t *testing.T) {
	runner := &fakeRunner{responses: cleanRepoResponses()}
	g := New("git", runner, nil)

	v, err := g.CurrentVersion(context.Background(), ".")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := version.RepoVersion{
		SemVer: version.New(1, 2, 3),
		Commit: headCommit,
	}
	if diff := cmp.Diff(expected, v); diff != "" {
		t.Error(diff)
	}
}

func TestCurrentVersionNoTag(t *testing.T) {
	responses := cleanRepoResponses()
	responses["describe --match=v[0-9]* HEAD"] = command.Result{Code: 128, Stderr: "fatal: no names found\n"}

	g := New("git", &fakeRunner{responses: responses}, nil)
	v, err := g.CurrentVersion(context.Background(), ".")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !v.SemVer.Equal(version.SemVer{}) {
		t.Errorf("expected version 0.0.0, got %s", v.SemVer)
	}
	if v.Commit != headCommit {
		t.Errorf("expected the HEAD commit to be kept, got %s", v.Commit)
	}
}

func TestCurrentVersionNoCommits(t *testing.T) {
	responses := cleanRepoResponses()
	responses["rev-parse HEAD"] = command.Result{Stdout: "HEAD\n"}
	responses["describe --match=v[0-9]* HEAD"] = command.Result{Code: 128}

	g := New("git", &fakeRunner{responses: responses}, nil)
	v, err := g.CurrentVersion(context.Background(), ".")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Commit != version.ZeroCommit {
		t.Errorf("expected the zero commit sentinel, got %s", v.Commit)
	}
}

func TestCurrentVersionDirty(t *testing.T) {
	tests := []struct {
		name      string
		diffIndex string
		status    string
		dirty     bool
	}{
		{"clean", "", "", false},
		{"modified tracked file", "main.go\n", "", true},
		{"untracked file", "", "?? new.go\n", true},
		{"staged files only", "", "M  main.go\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responses := cleanRepoResponses()
			responses["diff-index --name-only HEAD"] = command.Result{Stdout: tt.diffIndex}
			responses["status --porcelain"] = command.Result{Stdout: tt.status}

			g := New("git", &fakeRunner{responses: responses}, nil)
			v, err := g.CurrentVersion(context.Background(), ".")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Dirty != tt.dirty {
				t.Errorf("Dirty = %v, want %v", v.Dirty, tt.dirty)
			}
		})
	}
}

func TestRepo(t *testing.T) {
	tests := []struct {
		name     string
		fetchURL string
		expected string
	}{
		{"ssh remote", "Fetch URL: git@github.com:acme/widget.git", "acme/widget"},
		{"https remote", "Fetch URL: https://github.com/octocat/hello-world.git", "octocat/hello-world"},
		{"https without suffix", "Fetch URL: https://github.com/owner/name", "owner/name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := "* remote origin\n  " + tt.fetchURL + "\n  Push  URL: ...\n"
			g := New("git", &fakeRunner{responses: map[string]command.Result{
				"remote show -n origin": {Stdout: out},
			}}, nil)

			repo, err := g.Repo(context.Background(), ".")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo != tt.expected {
				t.Errorf("Repo() = %s, want %s", repo, tt.expected)
			}
		})
	}
}

func TestRepoErrors(t *testing.T) {
	t.Run("unparseable remote", func(t *testing.T) {
		g := New("git", &fakeRunner{responses: map[string]command.Result{
			"remote show -n origin": {Stdout: "* remote origin\n  Fetch URL: \n"},
		}}, nil)

		_, err := g.Repo(context.Background(), ".")
		var perr *RemoteParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected RemoteParseError, got %v", err)
		}
	})

	t.Run("non-github host", func(t *testing.T) {
		g := New("git", &fakeRunner{responses: map[string]command.Result{
			"remote show -n origin": {Stdout: "  Fetch URL: git@gitlab.com:owner/name.git\n"},
		}}, nil)

		_, err := g.Repo(context.Background(), ".")
		var herr *UnsupportedHostError
		if !errors.As(err, &herr) {
			t.Fatalf("expected UnsupportedHostError, got %v", err)
		}
		if herr.Host != "gitlab.com" {
			t.Errorf("expected gitlab.com, got %s", herr.Host)
		}
	})
}

func TestVersion(t *testing.T) {
	g := New("git", &fakeRunner{responses: map[string]command.Result{
		"--version": {Stdout: "git version 2.39.2\n"},
	}}, nil)

	v, err := g.Version(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Equal(version.New(2, 39, 2)) {
		t.Errorf("expected 2.39.2, got %s", v)
	}
}

func TestTagDate(t *testing.T) {
	g := New("git", &fakeRunner{responses: map[string]command.Result{
		"rev-parse --show-toplevel": {Stdout: "/repo\n"},
		"log -1 --format=%ai v1.2.3": {
			Stdout: "2024-03-01 12:30:45 +0100\n",
		},
	}}, nil)

	d, err := g.TagDate(context.Background(), "v1.2.3", ".")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := time.Date(2024, 3, 1, 12, 30, 45, 0, time.FixedZone("", 3600))
	if !d.Equal(expected) {
		t.Errorf("TagDate() = %v, want %v", d, expected)
	}
}

func TestCommit(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "CHANGELOG.md")
	if err := os.WriteFile(file, []byte("# Changelog\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{responses: map[string]command.Result{
		"rev-parse --show-toplevel":   {Stdout: dir + "\n"},
		"add CHANGELOG.md":            {},
		"commit -m Updated changelog": {},
	}}
	g := New("git", runner, nil)

	if err := g.Commit(context.Background(), file, "Updated changelog"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"rev-parse --show-toplevel", "add CHANGELOG.md", "commit -m Updated changelog"}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Error(diff)
	}
}

func TestCreateTag(t *testing.T) {
	runner := &fakeRunner{responses: map[string]command.Result{
		"rev-parse --show-toplevel":    {Stdout: "/repo\n"},
		"tag -a v1.3.0 -m The release": {},
	}}
	g := New("git", runner, nil)

	if err := g.CreateTag(context.Background(), version.New(1, 3, 0), ".", "The release"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.calls[len(runner.calls)-1] != "tag -a v1.3.0 -m The release" {
		t.Errorf("unexpected tag invocation: %v", runner.calls)
	}
}

func TestPushAndPushTags(t *testing.T) {
	runner := &fakeRunner{responses: map[string]command.Result{
		"rev-parse --show-toplevel": {Stdout: "/repo\n"},
		"push":                      {},
		"push --tags":               {},
	}}
	g := New("git", runner, nil)

	if err := g.Push(context.Background(), "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.PushTags(context.Background(), "."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindExeInPath(t *testing.T) {
	found := FindExeInPath("sh", "")
	if len(found) == 0 {
		t.Error("expected to find sh in PATH")
	}
	for _, p := range found {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("returned path does not exist: %s", p)
		}
	}

	if got := FindExeInPath("definitely-not-a-real-command-xyz", ""); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}

	dir := t.TempDir()
	exe := filepath.Join(dir, "mytool")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	got := FindExeInPath("mytool", dir)
	if diff := cmp.Diff([]string{exe}, got); diff != "" {
		t.Error(diff)
	}
}

func TestLookPath(t *testing.T) {
	if _, err := LookPath("sh"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_, err := LookPath("definitely-not-a-real-command-xyz")
	var terr *ToolNotFoundError
	if !errors.As(err, &terr) {
		t.Fatalf("expected ToolNotFoundError, got %v", err)
	}
}
