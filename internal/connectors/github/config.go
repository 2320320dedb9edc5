package github

import (
	"fmt"
	"path"
	"strings"
)

// DefaultBranch is used when no branch is configured.
const DefaultBranch = "main"

// Config locates the document directory inside a repository.
type Config struct {
	// Owner is the user or organisation that owns the repository.
	Owner string

	// Repo is the repository name.
	Repo string

	// Branch is the branch read from and committed to.
	// Default: main
	Branch string

	// Dir is the directory holding the documents. Empty means the
	// repository root.
	Dir string

	// CommitterName and CommitterEmail are optional. When both are set
	// they are recorded on every commit.
	CommitterName  string
	CommitterEmail string
}

// ParseRepository parses "owner/repo" into a Config with defaults applied.
func ParseRepository(s string) (*Config, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("%w: %q", ErrConfigInvalidRepository, s)
	}
	return &Config{Owner: owner, Repo: strings.TrimSuffix(repo, ".git"), Branch: DefaultBranch}, nil
}

// Validate checks required fields and normalises the directory.
func (c *Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("%w: owner and repo are required", ErrConfigInvalidRepository)
	}
	if c.Branch == "" {
		c.Branch = DefaultBranch
	}
	c.Dir = cleanDir(c.Dir)
	if strings.HasPrefix(c.Dir, "..") {
		return fmt.Errorf("%w: %q", ErrConfigInvalidDir, c.Dir)
	}
	return nil
}

// Repository returns "owner/repo".
func (c *Config) Repository() string {
	return c.Owner + "/" + c.Repo
}

func cleanDir(dir string) string {
	dir = strings.Trim(strings.ReplaceAll(dir, `\`, "/"), "/")
	if dir == "" {
		return ""
	}
	dir = path.Clean(dir)
	if dir == "." {
		return ""
	}
	return dir
}
