// Package gitsync keeps local working trees of proposal repositories up
// to date by shelling out to the git CLI.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/propwatch/propwatch/proposal"
)

// allowedProtocols are the git URL protocols permitted for cloning.
var allowedProtocols = map[string]bool{
	"https": true,
	"git":   true,
	"ssh":   true,
}

var slugSanitizeRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Client clones and updates proposal repositories under a workspace
// directory, one subdirectory per repository.
type Client struct {
	workspace string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewClient creates a git sync client. timeout bounds every git
// invocation; zero means 5 minutes.
func NewClient(workspace string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{workspace: workspace, timeout: timeout, logger: logger}
}

// Sync ensures a working tree for repoURL at branch exists and is
// current, returning its path. An existing clone is fetched and hard
// reset to the remote branch; anything else is cloned fresh. Failures
// wrap proposal.ErrSync.
func (c *Client) Sync(ctx context.Context, repoURL, branch string) (string, error) {
	if err := validateURL(repoURL); err != nil {
		return "", fmt.Errorf("%w: %v", proposal.ErrSync, err)
	}

	dir := filepath.Join(c.workspace, RepoSlug(repoURL))
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return "", fmt.Errorf("%w: create workspace: %v", proposal.ErrSync, err)
	}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := c.update(ctx, dir, branch); err != nil {
			return "", err
		}
		c.logHead(ctx, dir, repoURL)
		return dir, nil
	}

	// A directory without .git is a broken previous clone.
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("%w: clear stale clone: %v", proposal.ErrSync, err)
		}
	}

	c.logger.Info("cloning proposal repository",
		slog.String("repo", repoURL), slog.String("branch", branch))
	if err := c.run(ctx, "", "clone", "--single-branch", "--branch", branch, repoURL, dir); err != nil {
		return "", err
	}
	c.logHead(ctx, dir, repoURL)
	return dir, nil
}

// logHead records which commit a sync landed on.
func (c *Client) logHead(ctx context.Context, dir, repoURL string) {
	head, err := c.Head(ctx, dir)
	if err != nil {
		c.logger.Debug("resolving synced commit failed",
			slog.String("repo", repoURL), slog.String("error", err.Error()))
		return
	}
	c.logger.Info("repository synced",
		slog.String("repo", repoURL), slog.String("commit", head))
}

func (c *Client) update(ctx context.Context, dir, branch string) error {
	if err := c.run(ctx, dir, "fetch", "origin", branch); err != nil {
		return err
	}
	return c.run(ctx, dir, "reset", "--hard", "origin/"+branch)
}

// Head returns the commit hash the working tree is at.
func (c *Client) Head(ctx context.Context, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: rev-parse: %v", proposal.ErrSync, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *Client) run(ctx context.Context, dir string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: git %s: %v: %s", proposal.ErrSync, args[len(args)-1], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// validateURL checks that a git URL uses an allowed protocol.
func validateURL(rawURL string) error {
	if strings.HasPrefix(rawURL, "git@") {
		return nil // SSH shorthand
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if !allowedProtocols[scheme] {
		return fmt.Errorf("protocol %q not allowed; must be https, git, or ssh", scheme)
	}
	return nil
}

// RepoSlug derives a filesystem-safe directory name from a repo URL,
// e.g. https://github.com/python/peps -> python-peps.
func RepoSlug(repoURL string) string {
	s := strings.TrimSuffix(repoURL, ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "git@")
	s = strings.ReplaceAll(s, ":", "/")
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) > 2 {
		parts = parts[len(parts)-2:]
	}
	return slugSanitizeRe.ReplaceAllString(strings.Join(parts, "-"), "-")
}
