// Package identity maps an arbitrary directory to a reproducible project key.
// Git-remote identity is preferred over local-path identity so the same
// repository cloned on two machines resolves to one project.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"admem/internal/logging"
)

// Descriptor identifies a project rooted at a directory
type Descriptor struct {
	Name         string   `json:"name"`
	RootPath     string   `json:"rootPath"`
	PathHash     string   `json:"pathHash"`
	RepositoryID string   `json:"repositoryId,omitempty"`
	RemoteURL    string   `json:"remoteUrl,omitempty"`
	TechStack    []string `json:"techStack"`
	ProjectType  string   `json:"projectType"`
}

// markerFiles are manifest files that indicate a project root, any language.
// Order matters only for name resolution, not for root detection.
var markerFiles = []string{
	"package.json",
	"Cargo.toml",
	"pyproject.toml",
	"go.mod",
	"pubspec.yaml",
	"requirements.txt",
	"setup.py",
	"pom.xml",
	"build.gradle",
	"build.gradle.kts",
	"composer.json",
	"Gemfile",
	"CMakeLists.txt",
	"Makefile",
}

// vcsDirs are version-control directories that also mark a project root
var vcsDirs = []string{".git", ".hg", ".svn"}

// PathHashLength is the hex length of the truncated path digest
const PathHashLength = 16

// Detector resolves project identity from the filesystem
type Detector struct {
	logger *logging.Logger
}

// NewDetector creates a detector
func NewDetector(logger *logging.Logger) *Detector {
	return &Detector{logger: logger}
}

// ResolveRoot walks upward from startDir toward the filesystem root and stops
// at the first ancestor containing a recognized marker file or a
// version-control directory. Returns "" when no project is detected; callers
// must treat that as absence, not failure.
func ResolveRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if hasProjectMarker(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func hasProjectMarker(dir string) bool {
	for _, marker := range markerFiles {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	for _, vcs := range vcsDirs {
		if info, err := os.Stat(filepath.Join(dir, vcs)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// PathHash returns a fixed-length hex digest of the canonicalized absolute
// root path. Deterministic: the same path always yields the same hash.
func PathHash(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	abs = filepath.Clean(abs)

	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:PathHashLength]
}

// Detect combines root resolution, path hashing, git identity, and the
// manifest scan into a full project descriptor. Returns nil when startDir is
// not inside any recognizable project.
func (d *Detector) Detect(startDir string) (*Descriptor, error) {
	root, err := ResolveRoot(startDir)
	if err != nil {
		return nil, err
	}
	if root == "" {
		d.logger.Debug("No project detected", map[string]interface{}{
			"startDir": startDir,
		})
		return nil, nil
	}

	desc := &Descriptor{
		RootPath: root,
		PathHash: PathHash(root),
		Name:     resolveName(root),
	}

	if remote := GitIdentity(root, d.logger); remote != nil {
		desc.RepositoryID = remote.RepositoryID
		desc.RemoteURL = remote.RemoteURL
	}

	desc.TechStack = DetectTechStack(root)
	desc.ProjectType = ClassifyProjectType(desc.TechStack)

	d.logger.Debug("Project detected", map[string]interface{}{
		"root":         root,
		"pathHash":     desc.PathHash,
		"repositoryId": desc.RepositoryID,
		"projectType":  desc.ProjectType,
	})

	return desc, nil
}
