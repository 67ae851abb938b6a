// Package changelog renders markdown release entries and maintains the
// CHANGELOG file, newest entry first under a "# Changelog" heading.
package changelog

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/tagmint/tagmint/forge"
	"github.com/tagmint/tagmint/version"
)

// Heading is the line an existing changelog file is recognized by. New
// entries are inserted directly below it.
const Heading = "# Changelog"

var entryTmpl = template.Must(template.New("entry").Parse(
	`## [v{{.To}}](https://github.com/{{.Repo}}/tree/v{{.To}}) ({{.Date}})
{{- if .From}}
[Full Changelog](https://github.com/{{.Repo}}/compare/v{{.From}}...v{{.To}}){{if .MilestoneURL}} [Milestone]({{.MilestoneURL}}){{end}}
{{- else if .MilestoneURL}}
[Milestone]({{.MilestoneURL}})
{{- end}}

{{.Description}}

**Closed issues:**

{{if .Issues}}{{range .Issues}}  - {{.Title}} [\#{{.Number}}]({{.URL}})
{{end}}{{else}}_None_
{{end}}
**Merged pull requests:**

{{if .PullRequests}}{{range .PullRequests}}  - {{.Title}} [\#{{.Number}}]({{.URL}})
{{end}}{{else}}_None_
{{end}}`))

// Entry is the data one changelog entry is rendered from.
type Entry struct {
	To           string
	From         string
	Repo         string
	Description  string
	Date         string
	MilestoneURL string
	Issues       []forge.Issue
	PullRequests []forge.Issue
}

// MilestoneURL is the browse URL for all issues of a version milestone.
func MilestoneURL(repo string, v version.SemVer) string {
	q := url.QueryEscape(fmt.Sprintf("milestone:v%s is:all", v))
	return fmt.Sprintf("https://github.com/%s/issues?q=%s", repo, q)
}

// NewEntry assembles an Entry. A zero previous version means there is no
// compare range, and a nil milestone means no milestone link.
func NewEntry(current, previous version.SemVer, repo, description string, date time.Time, milestone *forge.Milestone, issues []forge.Issue) Entry {
	e := Entry{
		To:          current.String(),
		Repo:        repo,
		Description: description,
		Date:        date.Format("2006-01-02"),
	}
	if !previous.Equal(version.SemVer{}) {
		e.From = previous.String()
	}
	if milestone != nil {
		e.MilestoneURL = MilestoneURL(repo, current)
	}
	for _, i := range issues {
		if i.PullRequest {
			e.PullRequests = append(e.PullRequests, i)
		} else {
			e.Issues = append(e.Issues, i)
		}
	}
	return e
}

// Render produces the markdown text of one entry.
func Render(e Entry) (string, error) {
	var b strings.Builder
	if err := entryTmpl.Execute(&b, e); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Write creates or updates the changelog at path. A missing file is
// created with the heading; an existing file gets the entry inserted
// right after its heading line, leaving everything else untouched.
func Write(path, entry string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return os.WriteFile(path, []byte(Heading+"\n\n"+entry), 0644)
	}

	var b strings.Builder
	inserted := false
	lines := strings.SplitAfter(string(data), "\n")
	for _, line := range lines {
		b.WriteString(line)
		if !inserted && strings.HasPrefix(line, Heading) {
			b.WriteString("\n")
			b.WriteString(entry)
			inserted = true
		}
	}
	if !inserted {
		// No heading found, keep the file intact and prepend one.
		return os.WriteFile(path, []byte(Heading+"\n\n"+entry+"\n"+string(data)), 0644)
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}
