package jira

import (
	"context"
	"fmt"
	"net/http"
)

// fieldOperation is one directive in an update envelope.
type fieldOperation struct {
	Set any `json:"set"`
}

type createIssueRequest struct {
	Fields map[string]any `json:"fields"`
}

type updateIssueRequest struct {
	Update map[string][]fieldOperation `json:"update"`
}

type transitionRequest struct {
	Transition struct {
		ID string `json:"id"`
	} `json:"transition"`
	Fields map[string]any `json:"fields,omitempty"`
}

type keyRef struct {
	Key string `json:"key"`
}

type nameRef struct {
	Name string `json:"name"`
}

// LoadIssue fetches a single issue and hydrates its comments and watchers.
// Link ends omitted by the server are filled in with the issue itself.
func (c *Client) LoadIssue(ctx context.Context, ref IssueRef) (*Issue, error) {
	issue, err := c.loadIssue(ctx, ref)
	if err != nil {
		return nil, wrapErr("load issue", err)
	}
	return issue, nil
}

// LoadIssueByKey is LoadIssue for an id or key given as a string.
func (c *Client) LoadIssueByKey(ctx context.Context, idOrKey string) (*Issue, error) {
	return c.LoadIssue(ctx, ParseIssueRef(idOrKey))
}

func (c *Client) loadIssue(ctx context.Context, ref IssueRef) (*Issue, error) {
	path, err := issuePath(ref, "")
	if err != nil {
		return nil, err
	}

	var issue Issue
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &issue); err != nil {
		return nil, err
	}
	issue.Fields.normalize()

	comments, err := c.getComments(ctx, issue.IssueRef)
	if err != nil {
		return nil, err
	}
	watchers, err := c.getWatchers(ctx, issue.IssueRef)
	if err != nil {
		return nil, err
	}
	issue.Fields.Comments = comments
	issue.Fields.Watchers = watchers
	issue.expandLinks()
	return &issue, nil
}

// CreateIssue creates an issue in the given project and returns it as
// reloaded from the server. Only set fields are sent.
//
// The issue may exist on the server even when the reload fails.
func (c *Client) CreateIssue(ctx context.Context, projectKey string, issueType IssueType, fields IssueFields) (*Issue, error) {
	payload, err := buildCreateFields(projectKey, issueType, &fields)
	if err != nil {
		return nil, wrapErr("create issue", err)
	}

	var created IssueRef
	if err := c.do(ctx, http.MethodPost, "issue", createIssueRequest{Fields: payload}, http.StatusCreated, &created); err != nil {
		return nil, wrapErr("create issue", err)
	}
	c.logger.Debug("issue created", "id", created.ID, "key", created.Key)

	issue, err := c.loadIssue(ctx, created)
	if err != nil {
		return nil, wrapErr("create issue", err)
	}
	return issue, nil
}

// CreateIssueWithSummary creates an issue with only a summary set.
func (c *Client) CreateIssueWithSummary(ctx context.Context, projectKey string, issueType IssueType, summary string) (*Issue, error) {
	fields := NewIssueFields()
	fields.Summary = summary
	return c.CreateIssue(ctx, projectKey, issueType, fields)
}

// UpdateIssue sends every set field of issue as a "set" directive and
// returns the issue as reloaded from the server. Unset fields are left
// untouched on the server.
func (c *Client) UpdateIssue(ctx context.Context, issue *Issue) (*Issue, error) {
	if issue == nil {
		return nil, wrapErr("update issue", ErrIssueRefRequired)
	}
	path, err := issuePath(issue.IssueRef, "")
	if err != nil {
		return nil, wrapErr("update issue", err)
	}
	payload, err := buildUpdatePayload(&issue.Fields)
	if err != nil {
		return nil, wrapErr("update issue", err)
	}

	if err := c.do(ctx, http.MethodPut, path, payload, http.StatusNoContent, nil); err != nil {
		return nil, wrapErr("update issue", err)
	}

	updated, err := c.loadIssue(ctx, issue.IssueRef)
	if err != nil {
		return nil, wrapErr("update issue", err)
	}
	return updated, nil
}

// DeleteIssue deletes an issue together with its subtasks.
func (c *Client) DeleteIssue(ctx context.Context, ref IssueRef) error {
	path, err := issuePath(ref, "")
	if err != nil {
		return wrapErr("delete issue", err)
	}
	if err := c.do(ctx, http.MethodDelete, path+"?deleteSubtasks=true", nil, http.StatusNoContent, nil); err != nil {
		return wrapErr("delete issue", err)
	}
	return nil
}

// GetTransitions lists the workflow transitions available to an issue,
// including the fields each transition screen accepts.
func (c *Client) GetTransitions(ctx context.Context, ref IssueRef) ([]Transition, error) {
	path, err := issuePath(ref, "transitions?expand=transitions.fields")
	if err != nil {
		return nil, wrapErr("load issue transitions", err)
	}

	var result transitionsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &result); err != nil {
		return nil, wrapErr("load issue transitions", err)
	}
	if result.Transitions == nil {
		result.Transitions = []Transition{}
	}
	return result.Transitions, nil
}

// TransitionIssue moves an issue through a workflow transition, optionally
// setting fields on the transition screen, and returns the reloaded issue.
func (c *Client) TransitionIssue(ctx context.Context, ref IssueRef, transition Transition, fields map[string]any) (*Issue, error) {
	if transition.ID == "" {
		return nil, wrapErr("transition issue state", ErrTransitionIDRequired)
	}
	path, err := issuePath(ref, "transitions")
	if err != nil {
		return nil, wrapErr("transition issue state", err)
	}

	var body transitionRequest
	body.Transition.ID = transition.ID
	if len(fields) > 0 {
		body.Fields = fields
	}

	if err := c.do(ctx, http.MethodPost, path, body, http.StatusNoContent, nil); err != nil {
		return nil, wrapErr("transition issue state", err)
	}
	c.logger.Debug("issue transitioned", "issue", ref.String(), "transition", transition.ID)

	issue, err := c.loadIssue(ctx, ref)
	if err != nil {
		return nil, wrapErr("transition issue state", err)
	}
	return issue, nil
}

// GetWatchers lists the users watching an issue.
func (c *Client) GetWatchers(ctx context.Context, ref IssueRef) ([]User, error) {
	watchers, err := c.getWatchers(ctx, ref)
	if err != nil {
		return nil, wrapErr("load watchers", err)
	}
	return watchers, nil
}

func (c *Client) getWatchers(ctx context.Context, ref IssueRef) ([]User, error) {
	path, err := issuePath(ref, "watchers")
	if err != nil {
		return nil, err
	}

	var result watchersResponse
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	if result.Watchers == nil {
		result.Watchers = []User{}
	}
	return result.Watchers, nil
}

// buildCreateFields assembles the "fields" object of a create request from
// the set fields only.
func buildCreateFields(projectKey string, issueType IssueType, f *IssueFields) (map[string]any, error) {
	data := map[string]any{
		"project":   keyRef{Key: projectKey},
		"issuetype": issueTypeRef(issueType),
	}

	if f.Summary != "" {
		data["summary"] = f.Summary
	}
	if f.Description != "" {
		data["description"] = f.Description
	}
	if len(f.Labels) > 0 {
		data["labels"] = f.Labels
	}
	if f.TimeTracking.hasEstimate() {
		data["timetracking"] = map[string]string{"originalEstimate": originalEstimate(f.TimeTracking)}
	}
	if f.Assignee != nil {
		data["assignee"] = nameRef{Name: f.Assignee.Name}
	}
	if f.Parent != nil && !f.Parent.IsZero() {
		data["parent"] = parentRef(*f.Parent)
	}
	if f.Priority != nil {
		data["priority"] = priorityRef(*f.Priority)
	}
	if f.DueDate != nil {
		data["duedate"] = *f.DueDate
	}

	custom, err := f.customFieldEntries()
	if err != nil {
		return nil, err
	}
	for key, value := range custom {
		data[key] = value
	}
	return data, nil
}

// buildUpdatePayload wraps every set field in a "set" directive.
func buildUpdatePayload(f *IssueFields) (updateIssueRequest, error) {
	update := map[string][]fieldOperation{}
	set := func(field string, value any) {
		update[field] = []fieldOperation{{Set: value}}
	}

	if f.Summary != "" {
		set("summary", f.Summary)
	}
	if f.Description != "" {
		set("description", f.Description)
	}
	if len(f.Labels) > 0 {
		set("labels", f.Labels)
	}
	if f.TimeTracking.hasEstimate() {
		set("timetracking", map[string]string{"originalEstimate": originalEstimate(f.TimeTracking)})
	}
	if f.DueDate != nil {
		set("duedate", *f.DueDate)
	}
	if f.Assignee != nil {
		set("assignee", nameRef{Name: f.Assignee.Name})
	}
	if f.Priority != nil {
		set("priority", priorityRef(*f.Priority))
	}

	custom, err := f.customFieldEntries()
	if err != nil {
		return updateIssueRequest{}, err
	}
	for key, value := range custom {
		set(key, value)
	}
	return updateIssueRequest{Update: update}, nil
}

func issueTypeRef(t IssueType) map[string]string {
	if t.ID != "" {
		return map[string]string{"id": t.ID}
	}
	return map[string]string{"name": t.Name}
}

func priorityRef(p Priority) map[string]string {
	if p.ID != "" {
		return map[string]string{"id": p.ID}
	}
	return map[string]string{"name": p.Name}
}

func parentRef(ref IssueRef) map[string]string {
	if ref.Key != "" {
		return map[string]string{"key": ref.Key}
	}
	return map[string]string{"id": ref.Identifier()}
}

// hasEstimate reports whether t carries an original estimate to write.
func (t *TimeTracking) hasEstimate() bool {
	return t != nil && (t.OriginalEstimate != "" || t.OriginalEstimateSeconds > 0)
}

// originalEstimate renders an estimate the way JIRA accepts it on write.
func originalEstimate(t *TimeTracking) string {
	if t.OriginalEstimate != "" {
		return t.OriginalEstimate
	}
	return fmt.Sprintf("%dm", t.OriginalEstimateSeconds/60)
}
