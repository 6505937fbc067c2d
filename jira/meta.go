package jira

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// GetIssueTypes lists every issue type known to the server.
func (c *Client) GetIssueTypes(ctx context.Context) ([]IssueType, error) {
	var types []IssueType
	if err := c.do(ctx, http.MethodGet, "issuetype", nil, http.StatusOK, &types); err != nil {
		return nil, wrapErr("load issue types", err)
	}
	if types == nil {
		types = []IssueType{}
	}
	return types, nil
}

// GetServerInfo returns version and deployment information.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, "serverInfo", nil, http.StatusOK, &info); err != nil {
		return nil, wrapErr("retrieve server information", err)
	}
	return &info, nil
}

// GetWorklogs returns the time logged against an issue.
func (c *Client) GetWorklogs(ctx context.Context, ref IssueRef) ([]Worklog, error) {
	path, err := issuePath(ref, "worklog")
	if err != nil {
		return nil, wrapErr("load worklogs", err)
	}

	var page WorklogPage
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &page); err != nil {
		return nil, wrapErr("load worklogs", err)
	}
	if page.Worklogs == nil {
		page.Worklogs = []Worklog{}
	}
	return page.Worklogs, nil
}

// GetProjects lists the projects visible to the session user.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "project", nil, http.StatusOK, &projects); err != nil {
		return nil, wrapErr("load projects", err)
	}
	if projects == nil {
		projects = []Project{}
	}
	return projects, nil
}

// GetCreateIssueMeta describes the issue types and create-screen fields of
// a project.
func (c *Client) GetCreateIssueMeta(ctx context.Context, projectKey string) (*IssueMeta, error) {
	query := url.Values{}
	query.Set("expand", "projects.issuetypes.fields")
	query.Set("projectKeys", projectKey)

	var meta IssueMeta
	if err := c.do(ctx, http.MethodGet, "issue/createmeta?"+query.Encode(), nil, http.StatusOK, &meta); err != nil {
		return nil, wrapErr("load create issue meta", err)
	}
	return &meta, nil
}

// GetUser returns the user with the given username.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	query := url.Values{}
	query.Set("username", username)

	var user User
	if err := c.do(ctx, http.MethodGet, "user?"+query.Encode(), nil, http.StatusOK, &user); err != nil {
		return nil, wrapErr("load user", err)
	}
	return &user, nil
}

// FindUsers searches users by username, display name or email.
func (c *Client) FindUsers(ctx context.Context, username string, startAt, maxResults int) ([]User, error) {
	if maxResults <= 0 {
		maxResults = c.pageSize
	}
	query := url.Values{}
	query.Set("username", username)
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(maxResults))

	var users []User
	if err := c.do(ctx, http.MethodGet, "user/search?"+query.Encode(), nil, http.StatusOK, &users); err != nil {
		return nil, wrapErr("find users", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}
