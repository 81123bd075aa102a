package model

// NamespaceKindGroup is the namespace kind of projects owned by a group.
const NamespaceKindGroup = "group"

// Project is a GitLab project resolved from a workspace remote.
type Project struct {
	ID            int
	Name          string
	FullPath      string
	WebURL        string
	NamespaceID   int
	NamespaceKind string // "group" or "user".
}

// RemoteInfo is a git remote URL parsed into GitLab coordinates.
type RemoteInfo struct {
	Scheme    string
	Host      string
	Namespace string
	Project   string
}

// FullPath returns "namespace/project".
func (r RemoteInfo) FullPath() string {
	return r.Namespace + "/" + r.Project
}

// Workspace is a local working copy mapped to its GitLab remote.
type Workspace struct {
	Path           string
	Remote         RemoteInfo
	Branch         string // Current local branch.
	TrackingBranch string // Upstream branch name, or Branch when untracked.
}
