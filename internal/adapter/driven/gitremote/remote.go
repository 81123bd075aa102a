package gitremote

import (
	"net/url"
	"strings"

	"github.com/go-git/go-git/v6/plumbing/transport"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// ParseRemote splits a git remote URL into GitLab coordinates. instancePath
// is the path component of the instance URL ("" for instances served at the
// root); remotes outside it are rejected. Both scp-like ssh remotes
// (git@host:ns/project.git) and URL remotes (ssh://, https://) are accepted.
// Local and file:// remotes are not GitLab remotes.
func ParseRemote(remote, instancePath string) (model.RemoteInfo, bool) {
	ep, err := transport.NewEndpoint(strings.TrimSpace(remote))
	if err != nil || ep.Scheme == "" || ep.Scheme == "file" || ep.Hostname() == "" {
		return model.RemoteInfo{}, false
	}

	// scp-like endpoints carry the path without its leading slash.
	p := ep.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if instancePath != "" {
		if !strings.HasPrefix(p, instancePath+"/") {
			return model.RemoteInfo{}, false
		}
		p = p[len(instancePath):]
	}

	p = strings.TrimSuffix(strings.Trim(p, "/"), ".git")
	namespace, project, ok := cutLast(p, "/")
	if !ok || namespace == "" || project == "" {
		return model.RemoteInfo{}, false
	}

	return model.RemoteInfo{
		Scheme:    ep.Scheme,
		Host:      ep.Hostname(),
		Namespace: namespace,
		Project:   project,
	}, true
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// InstancePath returns the path component of an instance URL without a
// trailing slash, e.g. "/gitlab" for https://example.com/gitlab/.
func InstancePath(instanceURL string) string {
	u, err := url.Parse(instanceURL)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(u.Path, "/")
}
