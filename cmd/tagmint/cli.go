package main

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fatih/color"
	flags "github.com/jessevdk/go-flags"

	"github.com/tagmint/tagmint"
	"github.com/tagmint/tagmint/logging"
	"github.com/tagmint/tagmint/version"
)

const (
	// ExitOK for exit code
	ExitOK int = 0

	// ExitErr for exit code
	ExitErr int = 1
)

// CLI struct
type CLI struct {
	outStream, errStream io.Writer
	Command              string
	Args                 []string
	Config               string `long:"config" short:"c" description:"Path to configuration file"`
	LogLevel             string `long:"log-level" short:"l" arg:"(debug|info|warn|error)" description:"Level displayed as log"`
	LogFormat            string `long:"log-format" arg:"(text|json)" description:"Format of log output"`
	Path                 string `long:"path" short:"C" description:"Path to the repository to release (default: .)"`
	Repo                 string `long:"repo" short:"r" description:"GitHub repository as owner/name (default: detected from origin)"`
	Description          string `long:"description" short:"d" description:"Release description used in the changelog and tag message"`
	VersionFile          string `long:"version-file" description:"Also write the released version to this file"`
	Help                 bool   `long:"help" short:"h" description:"show this help message and exit"`
	Version              bool   `long:"version" short:"v" description:"prints the version number"`
}

func (c *CLI) buildHelp(names []string) []string {
	var help []string
	t := reflect.TypeOf(CLI{})

	for _, name := range names {
		f, ok := t.FieldByName(name)
		if !ok {
			continue
		}

		tag := f.Tag
		if tag == "" {
			continue
		}

		var o, a string
		if a = tag.Get("arg"); a != "" {
			a = fmt.Sprintf("=%s", a)
		}
		if s := tag.Get("short"); s != "" {
			o = fmt.Sprintf("-%s, --%s%s", s, tag.Get("long"), a)
		} else {
			o = fmt.Sprintf("--%s%s", tag.Get("long"), a)
		}

		help = append(help, fmt.Sprintf("  %-40s %s", o, tag.Get("description")))
	}

	return help
}

func (c *CLI) showHelp() {
	opts := strings.Join(c.buildHelp([]string{
		"Config",
		"Path",
		"Repo",
		"Description",
		"VersionFile",
		"LogLevel",
		"LogFormat",
	}), "\n")

	help := `
Usage: tagmint [--version] [--help] command <options>

Commands:
  release <major|minor|patch>   Tag, push and publish a new release
  version                       Print the current repository version
  next <major|minor|patch>      Print the version the bump would produce

Options:
%s
`
	fmt.Fprintf(c.outStream, help, opts)
}

func (c *CLI) run(a []string) int {
	p := flags.NewParser(c, flags.PrintErrors|flags.PassDoubleDash)
	args, err := p.ParseArgs(a)
	if err != nil || c.Help {
		c.showHelp()
		return ExitErr
	}

	if c.Version {
		fmt.Fprintf(c.errStream, "%s version %s\n", tagmint.Name, tagmint.Version)
		return ExitOK
	}

	if len(args) == 0 {
		fmt.Fprintf(c.errStream, "command not specified\n")
		c.showHelp()
		return ExitErr
	}

	c.Command = args[0]
	c.Args = args[1:]

	if c.LogLevel == "" {
		c.LogLevel = "error"
	}
	logger := logging.Setup(c.LogLevel, c.LogFormat, c.errStream)

	conf := tagmint.DefaultConfig()
	if err := conf.LoadConfigFile(c.Config); err != nil {
		return c.fail(err)
	}
	conf.OverrideWithEnv()
	if c.Path != "" {
		conf.Path = c.Path
	}
	if c.Repo != "" {
		conf.Repo = c.Repo
	}
	if c.Description != "" {
		conf.Description = c.Description
	}
	if c.VersionFile != "" {
		conf.VersionFile = c.VersionFile
	}

	r, err := tagmint.New(conf, logger)
	if err != nil {
		return c.fail(err)
	}

	ctx := context.Background()

	switch c.Command {
	case "release":
		cat, err := c.category()
		if err != nil {
			return c.fail(err)
		}
		v, err := r.Release(ctx, cat)
		if err != nil {
			return c.fail(err)
		}
		green := color.New(color.FgGreen)
		green.Fprintf(c.outStream, "Released v%s\n", v)
		return ExitOK

	case "version":
		v, err := r.CurrentVersion(ctx)
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintln(c.outStream, v)
		return ExitOK

	case "next":
		cat, err := c.category()
		if err != nil {
			return c.fail(err)
		}
		v, err := r.NextVersion(ctx, cat)
		if err != nil {
			return c.fail(err)
		}
		fmt.Fprintln(c.outStream, v)
		return ExitOK
	}

	fmt.Fprintf(c.errStream, "unknown command: %s\n", c.Command)
	c.showHelp()
	return ExitErr
}

func (c *CLI) category() (version.Category, error) {
	if len(c.Args) == 0 {
		return 0, fmt.Errorf("bump category not specified (major, minor or patch)")
	}
	return version.ParseCategory(c.Args[0])
}

func (c *CLI) fail(err error) int {
	red := color.New(color.FgRed)
	red.Fprintf(c.errStream, "%s\n", err)
	return ExitErr
}
