package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/mrpanel/internal/application"
	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

func testWorkspace(branch string) model.Workspace {
	return model.Workspace{
		Path:           "/src/project",
		Remote:         model.RemoteInfo{Scheme: "ssh", Host: "gitlab.example.com", Namespace: "group", Project: "project"},
		Branch:         branch,
		TrackingBranch: branch,
	}
}

func TestProjectCache_GetPutInvalidate(t *testing.T) {
	c := application.NewProjectCache()
	p := &model.Project{ID: 1, FullPath: "group/project"}

	_, ok := c.Get("group/project")
	assert.False(t, ok)

	c.Put("group/project", p)
	got, ok := c.Get("group/project")
	assert.True(t, ok)
	assert.Same(t, p, got)

	c.Invalidate("group/project")
	_, ok = c.Get("group/project")
	assert.False(t, ok)
}

func TestProjectCache_ObserveBranchEvictsOnChange(t *testing.T) {
	c := application.NewProjectCache()
	c.Put("group/project", &model.Project{ID: 1})

	assert.False(t, c.ObserveBranch(testWorkspace("main")), "first observation")
	assert.False(t, c.ObserveBranch(testWorkspace("main")), "same branch")
	_, ok := c.Get("group/project")
	assert.True(t, ok)

	assert.True(t, c.ObserveBranch(testWorkspace("feature")))
	_, ok = c.Get("group/project")
	assert.False(t, ok)
}

func TestProjectCache_Clear(t *testing.T) {
	c := application.NewProjectCache()
	c.Put("group/project", &model.Project{ID: 1})
	c.ObserveBranch(testWorkspace("main"))

	c.Clear()
	_, ok := c.Get("group/project")
	assert.False(t, ok)
	assert.False(t, c.ObserveBranch(testWorkspace("feature")), "branch memory cleared")
}
