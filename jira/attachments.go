package jira

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// GetAttachments returns the attachments of an issue. It loads the whole
// issue, since JIRA exposes attachments only as an issue field.
func (c *Client) GetAttachments(ctx context.Context, ref IssueRef) ([]Attachment, error) {
	issue, err := c.loadIssue(ctx, ref)
	if err != nil {
		return nil, wrapErr("load attachments", err)
	}
	return issue.Fields.Attachments, nil
}

// CreateAttachment uploads content as a file attached to an issue.
func (c *Client) CreateAttachment(ctx context.Context, ref IssueRef, filename string, content io.Reader) (*Attachment, error) {
	attachment, err := c.createAttachment(ctx, ref, filename, content)
	if err != nil {
		return nil, wrapErr("create attachment", err)
	}
	return attachment, nil
}

func (c *Client) createAttachment(ctx context.Context, ref IssueRef, filename string, content io.Reader) (*Attachment, error) {
	path, err := issuePath(ref, "attachments")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("reading attachment content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	u, err := resolve(c.apiURL, path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "nocheck")

	var attachments []Attachment
	if err := c.send(ctx, req, http.StatusOK, &attachments); err != nil {
		return nil, err
	}
	if len(attachments) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrUnexpectedAttachmentCount, len(attachments))
	}
	return &attachments[0], nil
}

// DeleteAttachment removes an attachment.
func (c *Client) DeleteAttachment(ctx context.Context, attachment Attachment) error {
	path := "attachment/" + url.PathEscape(attachment.ID)
	if err := c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil); err != nil {
		return wrapErr("delete attachment", err)
	}
	return nil
}
