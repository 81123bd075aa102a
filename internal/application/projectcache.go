package application

import (
	"sync"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// ProjectCache remembers projects resolved from workspace remotes of the
// configured instance, keyed by project full path. A workspace whose branch
// changes has its project evicted so the next lookup re-reads it. The token
// service clears the cache whenever the credentials change.
type ProjectCache struct {
	mu       sync.Mutex
	projects map[string]*model.Project
	branches map[string]string // Workspace path to last seen branch.
}

// NewProjectCache creates an empty cache.
func NewProjectCache() *ProjectCache {
	return &ProjectCache{
		projects: map[string]*model.Project{},
		branches: map[string]string{},
	}
}

// Get returns the cached project for fullPath.
func (c *ProjectCache) Get(fullPath string) (*model.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.projects[fullPath]
	return p, ok
}

// Put caches p under fullPath.
func (c *ProjectCache) Put(fullPath string, p *model.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projects[fullPath] = p
}

// Invalidate drops the entry for fullPath.
func (c *ProjectCache) Invalidate(fullPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.projects, fullPath)
}

// Clear drops every entry and every remembered branch.
func (c *ProjectCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.projects)
	clear(c.branches)
}

// ObserveBranch records the workspace's current branch. If a different branch
// was seen before for the same path, the workspace's project is evicted and
// true is returned.
func (c *ProjectCache) ObserveBranch(ws model.Workspace) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, seen := c.branches[ws.Path]
	c.branches[ws.Path] = ws.Branch
	if !seen || prev == ws.Branch {
		return false
	}
	delete(c.projects, ws.Remote.FullPath())
	return true
}
