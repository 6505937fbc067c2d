package jira

import (
	"context"
	"io"

	"github.com/sourcegraph/conc/panics"
)

// Future is the pending result of an operation started by AsyncClient.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns its future result. A panic in
// fn is recovered and reported as the future's error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		var catcher panics.Catcher
		catcher.Try(func() {
			f.value, f.err = fn()
		})
		if recovered := catcher.Recovered(); recovered != nil {
			var zero T
			f.value, f.err = zero, recovered.AsError()
		}
	}()
	return f
}

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done. Giving up on
// ctx does not cancel the operation; cancel the context it was started
// with for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func goErr(fn func() error) *Future[struct{}] {
	return Go(func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// AsyncClient exposes every remote operation of Client with a
// non-blocking calling convention. Results and errors are identical to the
// blocking methods.
type AsyncClient struct {
	c *Client
}

// Async returns the non-blocking view of c.
func (c *Client) Async() *AsyncClient {
	return &AsyncClient{c: c}
}

// EstablishSession runs Client.EstablishSession in the background.
func (a *AsyncClient) EstablishSession(ctx context.Context) *Future[struct{}] {
	return goErr(func() error { return a.c.EstablishSession(ctx) })
}

// GetSession runs Client.GetSession in the background.
func (a *AsyncClient) GetSession(ctx context.Context) *Future[*Session] {
	return Go(func() (*Session, error) { return a.c.GetSession(ctx) })
}

// GetIssues runs Client.GetIssues in the background.
func (a *AsyncClient) GetIssues(ctx context.Context, projectKey, issueType string) *Future[[]*Issue] {
	return Go(func() ([]*Issue, error) { return a.c.GetIssues(ctx, projectKey, issueType) })
}

// GetIssuesByQuery runs Client.GetIssuesByQuery in the background.
func (a *AsyncClient) GetIssuesByQuery(ctx context.Context, jql string, fields []string, startAt int) *Future[[]*Issue] {
	return Go(func() ([]*Issue, error) { return a.c.GetIssuesByQuery(ctx, jql, fields, startAt) })
}

// LoadIssue runs Client.LoadIssue in the background.
func (a *AsyncClient) LoadIssue(ctx context.Context, ref IssueRef) *Future[*Issue] {
	return Go(func() (*Issue, error) { return a.c.LoadIssue(ctx, ref) })
}

// LoadIssueByKey runs Client.LoadIssueByKey in the background.
func (a *AsyncClient) LoadIssueByKey(ctx context.Context, idOrKey string) *Future[*Issue] {
	return Go(func() (*Issue, error) { return a.c.LoadIssueByKey(ctx, idOrKey) })
}

// CreateIssue runs Client.CreateIssue in the background.
func (a *AsyncClient) CreateIssue(ctx context.Context, projectKey string, issueType IssueType, fields IssueFields) *Future[*Issue] {
	return Go(func() (*Issue, error) { return a.c.CreateIssue(ctx, projectKey, issueType, fields) })
}

// CreateIssueWithSummary runs Client.CreateIssueWithSummary in the background.
func (a *AsyncClient) CreateIssueWithSummary(ctx context.Context, projectKey string, issueType IssueType, summary string) *Future[*Issue] {
	return Go(func() (*Issue, error) { return a.c.CreateIssueWithSummary(ctx, projectKey, issueType, summary) })
}

// UpdateIssue runs Client.UpdateIssue in the background.
func (a *AsyncClient) UpdateIssue(ctx context.Context, issue *Issue) *Future[*Issue] {
	return Go(func() (*Issue, error) { return a.c.UpdateIssue(ctx, issue) })
}

// DeleteIssue runs Client.DeleteIssue in the background.
func (a *AsyncClient) DeleteIssue(ctx context.Context, ref IssueRef) *Future[struct{}] {
	return goErr(func() error { return a.c.DeleteIssue(ctx, ref) })
}

// GetTransitions runs Client.GetTransitions in the background.
func (a *AsyncClient) GetTransitions(ctx context.Context, ref IssueRef) *Future[[]Transition] {
	return Go(func() ([]Transition, error) { return a.c.GetTransitions(ctx, ref) })
}

// TransitionIssue runs Client.TransitionIssue in the background.
func (a *AsyncClient) TransitionIssue(ctx context.Context, ref IssueRef, transition Transition, fields map[string]any) *Future[*Issue] {
	return Go(func() (*Issue, error) { return a.c.TransitionIssue(ctx, ref, transition, fields) })
}

// GetWatchers runs Client.GetWatchers in the background.
func (a *AsyncClient) GetWatchers(ctx context.Context, ref IssueRef) *Future[[]User] {
	return Go(func() ([]User, error) { return a.c.GetWatchers(ctx, ref) })
}

// GetComments runs Client.GetComments in the background.
func (a *AsyncClient) GetComments(ctx context.Context, ref IssueRef) *Future[[]Comment] {
	return Go(func() ([]Comment, error) { return a.c.GetComments(ctx, ref) })
}

// CreateComment runs Client.CreateComment in the background.
func (a *AsyncClient) CreateComment(ctx context.Context, ref IssueRef, body string) *Future[*Comment] {
	return Go(func() (*Comment, error) { return a.c.CreateComment(ctx, ref, body) })
}

// UpdateComment runs Client.UpdateComment in the background.
func (a *AsyncClient) UpdateComment(ctx context.Context, ref IssueRef, comment Comment) *Future[*Comment] {
	return Go(func() (*Comment, error) { return a.c.UpdateComment(ctx, ref, comment) })
}

// DeleteComment runs Client.DeleteComment in the background.
func (a *AsyncClient) DeleteComment(ctx context.Context, ref IssueRef, comment Comment) *Future[struct{}] {
	return goErr(func() error { return a.c.DeleteComment(ctx, ref, comment) })
}

// GetAttachments runs Client.GetAttachments in the background.
func (a *AsyncClient) GetAttachments(ctx context.Context, ref IssueRef) *Future[[]Attachment] {
	return Go(func() ([]Attachment, error) { return a.c.GetAttachments(ctx, ref) })
}

// CreateAttachment runs Client.CreateAttachment in the background.
func (a *AsyncClient) CreateAttachment(ctx context.Context, ref IssueRef, filename string, content io.Reader) *Future[*Attachment] {
	return Go(func() (*Attachment, error) { return a.c.CreateAttachment(ctx, ref, filename, content) })
}

// DeleteAttachment runs Client.DeleteAttachment in the background.
func (a *AsyncClient) DeleteAttachment(ctx context.Context, attachment Attachment) *Future[struct{}] {
	return goErr(func() error { return a.c.DeleteAttachment(ctx, attachment) })
}

// GetIssueLinks runs Client.GetIssueLinks in the background.
func (a *AsyncClient) GetIssueLinks(ctx context.Context, ref IssueRef) *Future[[]IssueLink] {
	return Go(func() ([]IssueLink, error) { return a.c.GetIssueLinks(ctx, ref) })
}

// LoadIssueLink runs Client.LoadIssueLink in the background.
func (a *AsyncClient) LoadIssueLink(ctx context.Context, parent, child IssueRef, relationship string) *Future[*IssueLink] {
	return Go(func() (*IssueLink, error) { return a.c.LoadIssueLink(ctx, parent, child, relationship) })
}

// CreateIssueLink runs Client.CreateIssueLink in the background.
func (a *AsyncClient) CreateIssueLink(ctx context.Context, parent, child IssueRef, relationship string) *Future[*IssueLink] {
	return Go(func() (*IssueLink, error) { return a.c.CreateIssueLink(ctx, parent, child, relationship) })
}

// DeleteIssueLink runs Client.DeleteIssueLink in the background.
func (a *AsyncClient) DeleteIssueLink(ctx context.Context, link IssueLink) *Future[struct{}] {
	return goErr(func() error { return a.c.DeleteIssueLink(ctx, link) })
}

// GetRemoteLinks runs Client.GetRemoteLinks in the background.
func (a *AsyncClient) GetRemoteLinks(ctx context.Context, ref IssueRef) *Future[[]RemoteLink] {
	return Go(func() ([]RemoteLink, error) { return a.c.GetRemoteLinks(ctx, ref) })
}

// CreateRemoteLink runs Client.CreateRemoteLink in the background.
func (a *AsyncClient) CreateRemoteLink(ctx context.Context, ref IssueRef, link RemoteLink) *Future[*RemoteLink] {
	return Go(func() (*RemoteLink, error) { return a.c.CreateRemoteLink(ctx, ref, link) })
}

// UpdateRemoteLink runs Client.UpdateRemoteLink in the background.
func (a *AsyncClient) UpdateRemoteLink(ctx context.Context, ref IssueRef, link RemoteLink) *Future[*RemoteLink] {
	return Go(func() (*RemoteLink, error) { return a.c.UpdateRemoteLink(ctx, ref, link) })
}

// DeleteRemoteLink runs Client.DeleteRemoteLink in the background.
func (a *AsyncClient) DeleteRemoteLink(ctx context.Context, ref IssueRef, link RemoteLink) *Future[struct{}] {
	return goErr(func() error { return a.c.DeleteRemoteLink(ctx, ref, link) })
}

// GetIssueTypes runs Client.GetIssueTypes in the background.
func (a *AsyncClient) GetIssueTypes(ctx context.Context) *Future[[]IssueType] {
	return Go(func() ([]IssueType, error) { return a.c.GetIssueTypes(ctx) })
}

// GetServerInfo runs Client.GetServerInfo in the background.
func (a *AsyncClient) GetServerInfo(ctx context.Context) *Future[*ServerInfo] {
	return Go(func() (*ServerInfo, error) { return a.c.GetServerInfo(ctx) })
}

// GetWorklogs runs Client.GetWorklogs in the background.
func (a *AsyncClient) GetWorklogs(ctx context.Context, ref IssueRef) *Future[[]Worklog] {
	return Go(func() ([]Worklog, error) { return a.c.GetWorklogs(ctx, ref) })
}

// GetProjects runs Client.GetProjects in the background.
func (a *AsyncClient) GetProjects(ctx context.Context) *Future[[]Project] {
	return Go(func() ([]Project, error) { return a.c.GetProjects(ctx) })
}

// GetCreateIssueMeta runs Client.GetCreateIssueMeta in the background.
func (a *AsyncClient) GetCreateIssueMeta(ctx context.Context, projectKey string) *Future[*IssueMeta] {
	return Go(func() (*IssueMeta, error) { return a.c.GetCreateIssueMeta(ctx, projectKey) })
}

// GetUser runs Client.GetUser in the background.
func (a *AsyncClient) GetUser(ctx context.Context, username string) *Future[*User] {
	return Go(func() (*User, error) { return a.c.GetUser(ctx, username) })
}

// FindUsers runs Client.FindUsers in the background.
func (a *AsyncClient) FindUsers(ctx context.Context, username string, startAt, maxResults int) *Future[[]User] {
	return Go(func() ([]User, error) { return a.c.FindUsers(ctx, username, startAt, maxResults) })
}
