// Package jira provides a typed client for the JIRA REST API v2.
//
// # Sessions
//
// The client authenticates with a cookie session obtained from
// rest/auth/1/session. The session is established lazily on the first
// request and reused for the lifetime of the client. A credential can be
// exported and imported into another client, or persisted with the
// sessionstore package:
//
//	cfg, err := config.Load(config.DefaultPath())
//	if err != nil {
//		return err
//	}
//
//	client, err := jira.NewClient(cfg, jira.WithObserver(jira.NewLogObserver(nil)))
//	if err != nil {
//		return err
//	}
//
//	issue, err := client.LoadIssue(ctx, jira.ParseIssueRef("DEMO-5"))
//
// # Searching
//
// EnumerateIssuesByQuery returns a lazy sequence that fetches one page at a
// time. Every range over the sequence re-issues the search:
//
//	for issue, err := range client.EnumerateIssuesByQuery(ctx, "project=DEMO", nil, 0) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(issue.Key, issue.Fields.Summary)
//	}
//
// # Errors
//
// Every operation returns a *ClientError naming the failed operation. Its
// cause is a *TransportError when no response was received, a *StatusError
// when JIRA answered with an unexpected status, or a *DomainError for local
// invariant violations. Use errors.Is with the exported sentinels, or the
// IsNotFound style helpers.
//
// # Async
//
// Client.Async returns an AsyncClient whose methods start the operation on
// a new goroutine and return a Future.
package jira
