package gitlab

import (
	"context"
	"fmt"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/ericfisherdev/mrpanel/internal/domain/model"
)

// GetProject returns the project at fullPath ("namespace/project").
func (c *Client) GetProject(ctx context.Context, fullPath string) (*model.Project, error) {
	p, resp, err := c.gl.Projects.GetProject(fullPath, nil, ctxOpt(ctx))
	logRateLimit(resp, "project")
	if err != nil {
		return nil, wrapError(fmt.Sprintf("getting project %s", fullPath), resp, err)
	}

	out := &model.Project{
		ID:       p.ID,
		Name:     p.Name,
		FullPath: p.PathWithNamespace,
		WebURL:   p.WebURL,
	}
	if p.Namespace != nil {
		out.NamespaceID = p.Namespace.ID
		out.NamespaceKind = p.Namespace.Kind
	}
	return out, nil
}

// FindUserID looks a user up by exact username.
func (c *Client) FindUserID(ctx context.Context, username string) (int, bool, error) {
	users, resp, err := c.gl.Users.ListUsers(&gl.ListUsersOptions{Username: gl.Ptr(username)}, ctxOpt(ctx))
	logRateLimit(resp, "users")
	if err != nil {
		return 0, false, wrapError(fmt.Sprintf("looking up user %s", username), resp, err)
	}
	if len(users) == 0 || users[0] == nil {
		return 0, false, nil
	}
	return users[0].ID, true, nil
}
