package jira

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// EnumerateIssuesByQuery returns the issues matching jql, starting at
// startAt, fetched lazily one page at a time. fields restricts the
// returned fields; nil means the server default.
//
// The sequence is forward-only: each range over it starts a new fetch
// cycle from startAt and re-issues every request. Cancellation of ctx is
// checked before each page. On failure the sequence yields a single
// (nil, error) pair and stops.
func (c *Client) EnumerateIssuesByQuery(ctx context.Context, jql string, fields []string, startAt int) iter.Seq2[*Issue, error] {
	return func(yield func(*Issue, error) bool) {
		cursor := startAt
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, wrapErr("load issues", err))
				return
			}

			page, err := c.searchPage(ctx, jql, fields, cursor, c.pageSize)
			if err != nil {
				yield(nil, wrapErr("load issues", err))
				return
			}

			for idx := range page.Issues {
				if !yield(&page.Issues[idx], nil) {
					return
				}
			}

			// A page that makes no progress ends the sequence even if the
			// reported total has not been reached.
			if len(page.Issues) == 0 {
				return
			}
			cursor += len(page.Issues)
			if cursor >= page.Total {
				return
			}
		}
	}
}

// EnumerateIssues lazily returns the issues of a project, optionally
// restricted to one issue type.
func (c *Client) EnumerateIssues(ctx context.Context, projectKey, issueType string) iter.Seq2[*Issue, error] {
	return c.EnumerateIssuesByQuery(ctx, commonJQL(projectKey, issueType), nil, 0)
}

// GetIssuesByQuery eagerly collects EnumerateIssuesByQuery.
func (c *Client) GetIssuesByQuery(ctx context.Context, jql string, fields []string, startAt int) ([]*Issue, error) {
	return collect(c.EnumerateIssuesByQuery(ctx, jql, fields, startAt))
}

// GetIssues returns every issue of a project, optionally restricted to one
// issue type.
func (c *Client) GetIssues(ctx context.Context, projectKey, issueType string) ([]*Issue, error) {
	return collect(c.EnumerateIssues(ctx, projectKey, issueType))
}

func collect(seq iter.Seq2[*Issue, error]) ([]*Issue, error) {
	issues := []*Issue{}
	for issue, err := range seq {
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// searchPage fetches one page of search results.
func (c *Client) searchPage(ctx context.Context, jql string, fields []string, startAt, maxResults int) (*searchResults, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("startAt", strconv.Itoa(startAt))
	query.Set("maxResults", strconv.Itoa(maxResults))
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}

	c.logger.Debug("fetching search page", "jql", jql, "startAt", startAt, "maxResults", maxResults)

	var page searchResults
	if err := c.do(ctx, http.MethodGet, "search?"+query.Encode(), nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	for idx := range page.Issues {
		page.Issues[idx].Fields.normalize()
	}
	return &page, nil
}

// commonJQL builds "project=K AND issueType=T" from the non-empty parts.
func commonJQL(projectKey, issueType string) string {
	var parts []string
	if projectKey != "" {
		parts = append(parts, fmt.Sprintf("project=%s", projectKey))
	}
	if issueType != "" {
		parts = append(parts, fmt.Sprintf("issueType=%s", issueType))
	}
	return strings.Join(parts, " AND ")
}
