package tagmint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no config
// path is given.
const DefaultConfigFile = ".tagmint.yml"

// Config carries everything a release run needs besides the bump
// category.
type Config struct {
	// Path is the working tree (or a file inside it) to release.
	Path string `yaml:"-"`
	// Repo is the "owner/name" identity. Empty means detect it from the
	// origin remote.
	Repo string `yaml:"repo"`
	// Token is a GitHub token or the name of an environment variable
	// holding one.
	Token string `yaml:"token"`
	// Description is the free text for the changelog entry and tag
	// message. Empty means the default release description.
	Description string `yaml:"description"`
	// Changelog is the changelog file name, relative to the repository
	// root.
	Changelog string `yaml:"changelog"`
	// VersionFile is the name of the plain-text version file. Empty
	// disables writing one.
	VersionFile string `yaml:"version_file"`
	// Notify is a notifier scheme URL, for example
	// slack://releases?title=myapp. Empty disables notification.
	Notify string `yaml:"notify"`
}

// DefaultConfig returns the configuration a bare run uses.
func DefaultConfig() Config {
	return Config{
		Path:      ".",
		Token:     "GITHUB_TOKEN",
		Changelog: "CHANGELOG.md",
	}
}

// LoadConfigFile merges a YAML config file into c. A missing file at the
// default location is not an error; an explicitly named missing file is.
func (c *Config) LoadConfigFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// OverrideWithEnv applies environment overrides on top of file values.
func (c *Config) OverrideWithEnv() {
	if v := os.Getenv("TAGMINT_REPO"); v != "" {
		c.Repo = v
	}
	if v := os.Getenv("TAGMINT_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("TAGMINT_CHANGELOG"); v != "" {
		c.Changelog = v
	}
	if v := os.Getenv("TAGMINT_VERSION_FILE"); v != "" {
		c.VersionFile = v
	}
	if v := os.Getenv("TAGMINT_NOTIFY"); v != "" {
		c.Notify = v
	}
}
