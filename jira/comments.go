package jira

import (
	"context"
	"net/http"
	"net/url"
)

type commentRequest struct {
	Body string `json:"body"`
}

// GetComments returns all comments on an issue.
func (c *Client) GetComments(ctx context.Context, ref IssueRef) ([]Comment, error) {
	comments, err := c.getComments(ctx, ref)
	if err != nil {
		return nil, wrapErr("load comments", err)
	}
	return comments, nil
}

func (c *Client) getComments(ctx context.Context, ref IssueRef) ([]Comment, error) {
	path, err := issuePath(ref, "comment")
	if err != nil {
		return nil, err
	}

	var result commentsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	if result.Comments == nil {
		result.Comments = []Comment{}
	}
	return result.Comments, nil
}

// CreateComment adds a comment to an issue.
func (c *Client) CreateComment(ctx context.Context, ref IssueRef, body string) (*Comment, error) {
	path, err := issuePath(ref, "comment")
	if err != nil {
		return nil, wrapErr("create comment", err)
	}

	var comment Comment
	if err := c.do(ctx, http.MethodPost, path, commentRequest{Body: body}, http.StatusCreated, &comment); err != nil {
		return nil, wrapErr("create comment", err)
	}
	return &comment, nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, ref IssueRef, comment Comment) (*Comment, error) {
	path, err := issuePath(ref, "comment/%s", url.PathEscape(comment.ID))
	if err != nil {
		return nil, wrapErr("update comment", err)
	}

	var updated Comment
	if err := c.do(ctx, http.MethodPut, path, commentRequest{Body: comment.Body}, http.StatusOK, &updated); err != nil {
		return nil, wrapErr("update comment", err)
	}
	return &updated, nil
}

// DeleteComment removes a comment from an issue.
func (c *Client) DeleteComment(ctx context.Context, ref IssueRef, comment Comment) error {
	path, err := issuePath(ref, "comment/%s", url.PathEscape(comment.ID))
	if err != nil {
		return wrapErr("delete comment", err)
	}
	if err := c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil); err != nil {
		return wrapErr("delete comment", err)
	}
	return nil
}
