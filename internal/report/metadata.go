package report

import (
	"time"

	"github.com/google/uuid"
	git "gopkg.in/src-d/go-git.v4"
	"k8s.io/klog/v2"
)

// Metadata identifies one benchmark run in exported results.
type Metadata struct {
	RunID    string    `json:"runId"`
	Version  string    `json:"version"`
	Revision string    `json:"revision,omitempty"`
	Started  time.Time `json:"started"`
}

// NewMetadata records the git revision checked out in dir, if any.
func NewMetadata(version, dir string) Metadata {
	return Metadata{
		RunID:    uuid.NewString(),
		Version:  version,
		Revision: GitRevision(dir),
		Started:  time.Now().UTC(),
	}
}

// GitRevision returns the commit HEAD points to in the repository
// containing dir, or "" when dir is not in a git repository.
func GitRevision(dir string) string {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		klog.V(3).InfoS("No git repository", "dir", dir, "err", err)
		return ""
	}
	head, err := r.Head()
	if err != nil {
		klog.V(3).InfoS("Unable to resolve HEAD", "dir", dir, "err", err)
		return ""
	}
	return head.Hash().String()
}
