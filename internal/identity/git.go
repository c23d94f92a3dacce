package identity

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"admem/internal/logging"
)

// gitTimeout bounds the remote lookup. A hung git invocation must not stall
// project registration.
const gitTimeout = 5 * time.Second

// RemoteIdentity is the normalized Git remote of a repository
type RemoteIdentity struct {
	// RepositoryID is the normalized remote, e.g. "github.com/user/repo"
	RepositoryID string
	// RemoteURL is the raw configured remote
	RemoteURL string
}

// GitIdentity reads the origin remote of the repository at root and returns
// its normalized identity. Returns nil when root is not a git repository, has
// no remote, or git itself fails; remote lookup degrades, it never errors.
func GitIdentity(root string, logger *logging.Logger) *RemoteIdentity {
	if info, err := os.Stat(filepath.Join(root, ".git")); err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = root

	output, err := cmd.Output()
	if err != nil {
		logger.Debug("No git remote found", map[string]interface{}{
			"root":  root,
			"error": err.Error(),
		})
		return nil
	}

	raw := strings.TrimSpace(string(output))
	if raw == "" {
		return nil
	}

	normalized := NormalizeRemote(raw)
	if normalized == "" {
		return nil
	}

	return &RemoteIdentity{
		RepositoryID: normalized,
		RemoteURL:    raw,
	}
}

// NormalizeRemote converts any common remote URL form to a stable
// "host/owner/repo" key:
//
//	https://github.com/User/Repo.git -> github.com/user/repo
//	git@github.com:User/Repo.git     -> github.com/user/repo
//	ssh://git@github.com/User/Repo   -> github.com/user/repo
func NormalizeRemote(remote string) string {
	s := strings.TrimSpace(remote)
	if s == "" {
		return ""
	}

	// Strip the protocol prefix
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}

	// Strip userinfo (git@host, user:pass@host)
	if at := strings.Index(s, "@"); at >= 0 {
		slash := strings.Index(s, "/")
		if slash == -1 || at < slash {
			s = s[at+1:]
		}
	}

	// SSH shorthand host:owner/repo becomes host/owner/repo. Only a colon
	// before the first slash is the shorthand separator.
	if colon := strings.Index(s, ":"); colon >= 0 {
		slash := strings.Index(s, "/")
		if slash == -1 || colon < slash {
			s = s[:colon] + "/" + s[colon+1:]
		}
	}

	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimSuffix(s, "/")

	return strings.ToLower(s)
}
