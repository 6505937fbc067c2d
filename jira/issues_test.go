package jira

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dt-pm-tools/jira-rest-client/internal/jiratest"
)

func TestCreateIssueReloads(t *testing.T) {
	srv := jiratest.NewServer(t)
	client := newTestClient(t, srv.URL)

	issue, err := client.CreateIssueWithSummary(context.Background(), "DEMO", IssueType{Name: "Bug"}, "Test")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^DEMO-\d+$`), issue.Key)
	assert.NotZero(t, issue.ID)
	assert.Equal(t, "Test", issue.Fields.Summary)
	assert.Equal(t, "Bug", issue.Fields.IssueType.Name)
	assert.Equal(t, "To Do", issue.Fields.Status.Name)
	assert.NotNil(t, issue.Fields.Comments)
	require.Len(t, issue.Fields.Watchers, 1)
	assert.Equal(t, jiratest.Username, issue.Fields.Watchers[0].Name)

	creates := srv.RequestsTo(http.MethodPost, "issue")
	require.Len(t, creates, 1)
	assertJSONEqual(t, `{"fields":{"project":{"key":"DEMO"},"issuetype":{"name":"Bug"},"summary":"Test"}}`, creates[0].Body)

	var paths []string
	for _, req := range srv.Requests() {
		paths = append(paths, req.Method+" "+req.Path)
	}
	assert.Equal(t, []string{
		"POST /rest/auth/1/session",
		"POST issue",
		"GET issue/1",
		"GET issue/1/comment",
		"GET issue/1/watchers",
	}, paths)
}

func TestCreateIssueSendsOnlySetFields(t *testing.T) {
	srv := jiratest.NewServer(t)
	parentID, parentKey := srv.AddIssue("DEMO", "parent")
	client := newTestClient(t, srv.URL)

	fields := NewIssueFields()
	fields.Summary = "child"
	fields.Description = "details"
	fields.Labels = []string{"backend"}
	fields.Assignee = &User{Name: "admin", DisplayName: "Administrator"}
	fields.Parent = &IssueRef{ID: parentID, Key: parentKey}
	fields.DueDate = &Date{Time: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)}
	fields.TimeTracking = &TimeTracking{OriginalEstimateSeconds: 3600}
	require.NoError(t, fields.SetCustomField("customfield_10010", "sprint-1"))

	issue, err := client.CreateIssue(context.Background(), "DEMO", IssueType{ID: "5"}, fields)
	require.NoError(t, err)
	assert.Equal(t, "DEMO-2", issue.Key)
	assert.Equal(t, []string{"backend"}, issue.Fields.Labels)
	assert.Equal(t, "sprint-1", issue.Fields.CustomFields["customfield_10010"])
	require.NotNil(t, issue.Fields.DueDate)
	assert.Equal(t, "2024-03-10", issue.Fields.DueDate.Format(DateFormat))

	creates := srv.RequestsTo(http.MethodPost, "issue")
	require.Len(t, creates, 1)
	assertJSONEqual(t, `{"fields":{
		"project": {"key": "DEMO"},
		"issuetype": {"id": "5"},
		"summary": "child",
		"description": "details",
		"labels": ["backend"],
		"assignee": {"name": "admin"},
		"parent": {"key": "DEMO-1"},
		"duedate": "2024-03-10",
		"timetracking": {"originalEstimate": "60m"},
		"customfield_10010": "sprint-1"
	}}`, creates[0].Body)
}

func TestCreateIssueValidationError(t *testing.T) {
	srv := jiratest.NewServer(t)
	client := newTestClient(t, srv.URL)

	_, err := client.CreateIssue(context.Background(), "DEMO", IssueType{Name: "Bug"}, NewIssueFields())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "could not create issue")
	assert.Contains(t, err.Error(), "summary: You must specify a summary of the issue.")
	assert.Empty(t, srv.RequestsTo(http.MethodGet, "issue/1"))
}

func TestUpdateIssueDescriptionOnly(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, key := srv.AddIssue("DEMO", "original summary")
	client := newTestClient(t, srv.URL)

	issue := NewIssue()
	issue.IssueRef = IssueRef{ID: id, Key: key}
	issue.Fields.Description = "<text>"

	updated, err := client.UpdateIssue(context.Background(), issue)
	require.NoError(t, err)
	assert.Equal(t, "<text>", updated.Fields.Description)
	assert.Equal(t, "original summary", updated.Fields.Summary)

	puts := srv.RequestsTo(http.MethodPut, "issue/1")
	require.Len(t, puts, 1)
	assert.JSONEq(t, `{"update":{"description":[{"set":"<text>"}]}}`, string(puts[0].Body))
	assertJSONEqual(t, `{"update":{"description":[{"set":"<text>"}]}}`, puts[0].Body)
}

func TestUpdateIssueRoundTrip(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, _ := srv.AddIssue("DEMO", "before")
	client := newTestClient(t, srv.URL)

	loaded, err := client.LoadIssue(context.Background(), IssueRef{ID: id})
	require.NoError(t, err)
	require.NotNil(t, loaded.Fields.TimeTracking)

	loaded.Fields.Summary = "after"
	loaded.Fields.Priority = &Priority{Name: "High"}
	require.NoError(t, loaded.Fields.SetCustomField("customfield_10020", 8))

	updated, err := client.UpdateIssue(context.Background(), loaded)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Fields.Summary)
	assert.Equal(t, "High", updated.Fields.Priority.Name)
	assert.Equal(t, float64(8), updated.Fields.CustomFields["customfield_10020"])
	assert.Equal(t, map[string]any{"name": "High"}, srv.Fields(id)["priority"])

	puts := srv.RequestsTo(http.MethodPut, "issue/1")
	require.Len(t, puts, 1)
	assertJSONEqual(t, `{"update":{
		"summary": [{"set": "after"}],
		"priority": [{"set": {"name": "High"}}],
		"customfield_10020": [{"set": 8}]
	}}`, puts[0].Body)
}

func TestUpdateIssueRequiresIdentity(t *testing.T) {
	client := newTestClient(t, "https://jira.example.com")

	_, err := client.UpdateIssue(context.Background(), NewIssue())
	assert.ErrorIs(t, err, ErrIssueRefRequired)

	_, err = client.UpdateIssue(context.Background(), nil)
	assert.ErrorIs(t, err, ErrIssueRefRequired)
	assert.False(t, client.HasSession())
}

func TestDeleteIssuePath(t *testing.T) {
	tests := []struct {
		name string
		ref  IssueRef
		want string
	}{
		{name: "id known", ref: IssueRef{ID: 5, Key: "DEMO-5"}, want: "issue/5?deleteSubtasks=true"},
		{name: "key only", ref: IssueRef{Key: "DEMO-5"}, want: "issue/DEMO-5?deleteSubtasks=true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jiratest.NewServer(t)
			seedIssues(srv, 5)
			client := newTestClient(t, srv.URL)

			require.NoError(t, client.DeleteIssue(context.Background(), tt.ref))

			deletes := srv.RequestsTo(http.MethodDelete, "issue/"+tt.ref.Identifier())
			require.Len(t, deletes, 1)
			assert.Equal(t, tt.want, deletes[0].Path)
			assert.False(t, srv.HasIssue(5))

			_, err := client.LoadIssue(context.Background(), tt.ref)
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestDeleteIssueRequiresIdentity(t *testing.T) {
	client := newTestClient(t, "https://jira.example.com")
	err := client.DeleteIssue(context.Background(), IssueRef{})
	assert.ErrorIs(t, err, ErrIssueRefRequired)
	assert.Contains(t, err.Error(), "could not delete issue")
}

func TestLoadIssueByKey(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, key := srv.AddIssue("DEMO", "by key")
	client := newTestClient(t, srv.URL)

	issue, err := client.LoadIssueByKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, id, issue.ID)
	assert.Equal(t, "by key", issue.Fields.Summary)
	assert.Len(t, srv.RequestsTo(http.MethodGet, "issue/"+key), 1)
}

func TestLoadIssueHydratesComments(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, _ := srv.AddIssue("DEMO", "commented")
	client := newTestClient(t, srv.URL)

	_, err := client.CreateComment(context.Background(), IssueRef{ID: id}, "first")
	require.NoError(t, err)

	issue, err := client.LoadIssue(context.Background(), IssueRef{ID: id})
	require.NoError(t, err)
	require.Len(t, issue.Fields.Comments, 1)
	assert.Equal(t, "first", issue.Fields.Comments[0].Body)
}

func TestTransitions(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, _ := srv.AddIssue("DEMO", "workflow")
	client := newTestClient(t, srv.URL)
	ref := IssueRef{ID: id}

	transitions, err := client.GetTransitions(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, transitions, 3)

	reqs := srv.RequestsTo(http.MethodGet, "issue/1/transitions")
	require.Len(t, reqs, 1)
	assert.Equal(t, "issue/1/transitions?expand=transitions.fields", reqs[0].Path)

	var done Transition
	for _, tr := range transitions {
		if tr.Name == "Done" {
			done = tr
		}
	}
	require.Equal(t, "31", done.ID)
	assert.True(t, done.Fields["resolution"].Required)

	issue, err := client.TransitionIssue(context.Background(), ref, done, map[string]any{
		"resolution": map[string]string{"name": "Fixed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Done", issue.Fields.Status.Name)
	require.NotNil(t, issue.Fields.Resolution)
	assert.Equal(t, "Fixed", issue.Fields.Resolution.Name)

	posts := srv.RequestsTo(http.MethodPost, "issue/1/transitions")
	require.Len(t, posts, 1)
	assertJSONEqual(t, `{"transition":{"id":"31"},"fields":{"resolution":{"name":"Fixed"}}}`, posts[0].Body)
}

func TestTransitionIssueWithoutFields(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, _ := srv.AddIssue("DEMO", "workflow")
	client := newTestClient(t, srv.URL)

	issue, err := client.TransitionIssue(context.Background(), IssueRef{ID: id}, Transition{ID: "21"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "In Progress", issue.Fields.Status.Name)

	posts := srv.RequestsTo(http.MethodPost, "issue/1/transitions")
	require.Len(t, posts, 1)
	assertJSONEqual(t, `{"transition":{"id":"21"}}`, posts[0].Body)
}

func TestTransitionIssueRequiresID(t *testing.T) {
	srv := jiratest.NewServer(t)
	client := newTestClient(t, srv.URL)

	_, err := client.TransitionIssue(context.Background(), IssueRef{ID: 1}, Transition{Name: "Done"}, nil)
	assert.ErrorIs(t, err, ErrTransitionIDRequired)
	assert.Empty(t, srv.Requests())
}

func TestInvalidTransition(t *testing.T) {
	srv := jiratest.NewServer(t)
	id, _ := srv.AddIssue("DEMO", "workflow")
	client := newTestClient(t, srv.URL)

	_, err := client.TransitionIssue(context.Background(), IssueRef{ID: id}, Transition{ID: "99"}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "could not transition issue state")
}
