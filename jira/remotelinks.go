package jira

import (
	"context"
	"fmt"
	"net/http"
)

// Application identifies this client on remote links it creates.
var Application = RemoteLinkApplication{
	Type: "jira-rest-client",
	Name: "JIRA REST client",
}

// RemoteLinkApplication names the application that owns a remote link.
type RemoteLinkApplication struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type createRemoteLinkRequest struct {
	Application RemoteLinkApplication `json:"application"`
	Object      remoteLinkObject      `json:"object"`
}

type updateRemoteLinkRequest struct {
	Object remoteLinkObject `json:"object"`
}

// GetRemoteLinks returns the external links of an issue.
func (c *Client) GetRemoteLinks(ctx context.Context, ref IssueRef) ([]RemoteLink, error) {
	links, err := c.getRemoteLinks(ctx, ref)
	if err != nil {
		return nil, wrapErr("load external links for issue", err)
	}
	return links, nil
}

func (c *Client) getRemoteLinks(ctx context.Context, ref IssueRef) ([]RemoteLink, error) {
	path, err := issuePath(ref, "remotelink")
	if err != nil {
		return nil, err
	}

	var results []remoteLinkResult
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &results); err != nil {
		return nil, err
	}
	links := make([]RemoteLink, 0, len(results))
	for _, result := range results {
		links = append(links, result.remoteLink())
	}
	return links, nil
}

// getRemoteLink refetches the links of an issue and picks one by id.
func (c *Client) getRemoteLink(ctx context.Context, ref IssueRef, id int64) (*RemoteLink, error) {
	links, err := c.getRemoteLinks(ctx, ref)
	if err != nil {
		return nil, err
	}
	for idx := range links {
		if links[idx].ID == id {
			return &links[idx], nil
		}
	}
	return nil, fmt.Errorf("%w: id %d on %s", ErrRemoteLinkNotFound, id, ref)
}

// CreateRemoteLink attaches an external URL to an issue.
func (c *Client) CreateRemoteLink(ctx context.Context, ref IssueRef, link RemoteLink) (*RemoteLink, error) {
	path, err := issuePath(ref, "remotelink")
	if err != nil {
		return nil, wrapErr("create external link for issue", err)
	}

	body := createRemoteLinkRequest{
		Application: Application,
		Object: remoteLinkObject{
			URL:     link.URL,
			Title:   link.Title,
			Summary: link.Summary,
		},
	}
	var created remoteLinkResult
	if err := c.do(ctx, http.MethodPost, path, body, http.StatusCreated, &created); err != nil {
		return nil, wrapErr("create external link for issue", err)
	}

	result, err := c.getRemoteLink(ctx, ref, created.ID)
	if err != nil {
		return nil, wrapErr("create external link for issue", err)
	}
	return result, nil
}

// UpdateRemoteLink sends the set fields of link and returns the refetched
// link.
func (c *Client) UpdateRemoteLink(ctx context.Context, ref IssueRef, link RemoteLink) (*RemoteLink, error) {
	path, err := issuePath(ref, "remotelink/%d", link.ID)
	if err != nil {
		return nil, wrapErr("update external link for issue", err)
	}

	body := updateRemoteLinkRequest{Object: remoteLinkObject{
		URL:     link.URL,
		Title:   link.Title,
		Summary: link.Summary,
	}}
	if err := c.do(ctx, http.MethodPut, path, body, http.StatusNoContent, nil); err != nil {
		return nil, wrapErr("update external link for issue", err)
	}

	result, err := c.getRemoteLink(ctx, ref, link.ID)
	if err != nil {
		return nil, wrapErr("update external link for issue", err)
	}
	return result, nil
}

// DeleteRemoteLink removes an external link from an issue.
func (c *Client) DeleteRemoteLink(ctx context.Context, ref IssueRef, link RemoteLink) error {
	path, err := issuePath(ref, "remotelink/%d", link.ID)
	if err != nil {
		return wrapErr("delete external link for issue", err)
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil); err != nil {
		return wrapErr("delete external link for issue", err)
	}
	return nil
}
