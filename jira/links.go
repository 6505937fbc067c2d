package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type issueLinkRequest struct {
	Type         nameRef  `json:"type"`
	InwardIssue  IssueRef `json:"inwardIssue"`
	OutwardIssue IssueRef `json:"outwardIssue"`
}

// GetIssueLinks returns the links of an issue, with both ends filled in.
func (c *Client) GetIssueLinks(ctx context.Context, ref IssueRef) ([]IssueLink, error) {
	issue, err := c.loadIssue(ctx, ref)
	if err != nil {
		return nil, wrapErr("load issue links", err)
	}
	return issue.Fields.IssueLinks, nil
}

// LoadIssueLink finds the link of type relationship from parent (inward)
// to child (outward). More than one match is reported as
// ErrAmbiguousIssueLink, none as ErrIssueLinkNotFound.
func (c *Client) LoadIssueLink(ctx context.Context, parent, child IssueRef, relationship string) (*IssueLink, error) {
	link, err := c.loadIssueLink(ctx, parent, child, relationship)
	if err != nil {
		return nil, wrapErr("load issue link", err)
	}
	return link, nil
}

func (c *Client) loadIssueLink(ctx context.Context, parent, child IssueRef, relationship string) (*IssueLink, error) {
	issue, err := c.loadIssue(ctx, parent)
	if err != nil {
		return nil, err
	}
	return findIssueLink(issue.Fields.IssueLinks, parent, child, relationship)
}

func findIssueLink(links []IssueLink, parent, child IssueRef, relationship string) (*IssueLink, error) {
	var matches []IssueLink
	for _, link := range links {
		if link.Type.Name != relationship {
			continue
		}
		if !sameIssue(link.InwardIssue, parent) || !sameIssue(link.OutwardIssue, child) {
			continue
		}
		matches = append(matches, link)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s %q %s", ErrIssueLinkNotFound, parent, relationship, child)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d links %s %q %s", ErrAmbiguousIssueLink, len(matches), parent, relationship, child)
	}
}

// CreateIssueLink links parent (inward) to child (outward) and returns the
// new link as loaded from the parent issue.
func (c *Client) CreateIssueLink(ctx context.Context, parent, child IssueRef, relationship string) (*IssueLink, error) {
	if parent.IsZero() || child.IsZero() {
		return nil, wrapErr("link issues", ErrIssueRefRequired)
	}

	body := issueLinkRequest{
		Type:         nameRef{Name: relationship},
		InwardIssue:  parent,
		OutwardIssue: child,
	}
	if err := c.do(ctx, http.MethodPost, "issueLink", body, http.StatusCreated, nil); err != nil {
		return nil, wrapErr("link issues", err)
	}

	link, err := c.loadIssueLink(ctx, parent, child, relationship)
	if err != nil {
		return nil, wrapErr("link issues", err)
	}
	return link, nil
}

// DeleteIssueLink removes a link between two issues.
func (c *Client) DeleteIssueLink(ctx context.Context, link IssueLink) error {
	path := "issueLink/" + url.PathEscape(link.ID)
	if err := c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil); err != nil {
		return wrapErr("delete issue link", err)
	}
	return nil
}
