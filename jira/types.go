package jira

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the timestamp layout used by the JIRA REST API.
const TimeFormat = "2006-01-02T15:04:05.000-0700"

// DateFormat is the layout of date-only fields such as duedate.
const DateFormat = "2006-01-02"

// IssueRef identifies an issue by numeric id, key, or both.
type IssueRef struct {
	ID  int64  `json:"id,string,omitempty"`
	Key string `json:"key,omitempty"`
}

// ParseIssueRef builds a reference from a string that is either a numeric
// issue id or an issue key such as "DEMO-5".
func ParseIssueRef(s string) IssueRef {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return IssueRef{ID: id}
	}
	return IssueRef{Key: s}
}

// Identifier returns the id used in request paths: the numeric id when
// known, the key otherwise.
func (r IssueRef) Identifier() string {
	if r.ID != 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Key
}

// IsZero reports whether neither id nor key is set.
func (r IssueRef) IsZero() bool {
	return r.ID == 0 && r.Key == ""
}

// String implements fmt.Stringer.
func (r IssueRef) String() string {
	if r.Key != "" {
		return r.Key
	}
	return r.Identifier()
}

// sameIssue compares by id when both sides carry one, by key otherwise.
func sameIssue(a, b IssueRef) bool {
	if a.ID != 0 && b.ID != 0 {
		return a.ID == b.ID
	}
	return a.Key != "" && strings.EqualFold(a.Key, b.Key)
}

// Issue is a JIRA issue as returned by the issue and search endpoints.
type Issue struct {
	IssueRef
	Expand string      `json:"expand,omitempty"`
	Self   string      `json:"self,omitempty"`
	Fields IssueFields `json:"fields"`
}

// NewIssue returns an unsaved issue with initialized field collections.
func NewIssue() *Issue {
	return &Issue{Fields: NewIssueFields()}
}

// expandLinks completes link ends the server left out. A link loaded as
// part of an issue omits the side that is the issue itself.
func (i *Issue) expandLinks() {
	for idx := range i.Fields.IssueLinks {
		link := &i.Fields.IssueLinks[idx]
		if link.InwardIssue.ID == 0 && link.InwardIssue.Key == "" {
			link.InwardIssue = i.IssueRef
		}
		if link.OutwardIssue.ID == 0 && link.OutwardIssue.Key == "" {
			link.OutwardIssue = i.IssueRef
		}
	}
}

// Time is a JIRA timestamp.
type Time struct {
	time.Time
}

// UnmarshalJSON accepts the JIRA timestamp layouts and null.
func (t *Time) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON encodes t in TimeFormat.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(TimeFormat))
}

// Date is a date-only JIRA field value.
type Date struct {
	time.Time
}

// UnmarshalJSON accepts a date or a full timestamp.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// MarshalJSON encodes d in DateFormat.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateFormat))
}

// ParseTime parses a JIRA timestamp or date string.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	layouts := []string{
		TimeFormat,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		DateFormat,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Layout: TimeFormat, Value: s}
}

// User represents a JIRA user.
type User struct {
	Self         string            `json:"self,omitempty"`
	Key          string            `json:"key,omitempty"`
	Name         string            `json:"name,omitempty"`
	EmailAddress string            `json:"emailAddress,omitempty"`
	DisplayName  string            `json:"displayName,omitempty"`
	Active       bool              `json:"active,omitempty"`
	TimeZone     string            `json:"timeZone,omitempty"`
	AvatarURLs   map[string]string `json:"avatarUrls,omitempty"`
}

// Status represents a JIRA status.
type Status struct {
	ID             string          `json:"id,omitempty"`
	Self           string          `json:"self,omitempty"`
	Name           string          `json:"name,omitempty"`
	Description    string          `json:"description,omitempty"`
	IconURL        string          `json:"iconUrl,omitempty"`
	StatusCategory *StatusCategory `json:"statusCategory,omitempty"`
}

// StatusCategory represents the high-level category of a JIRA status.
type StatusCategory struct {
	ID   int    `json:"id,omitempty"`
	Key  string `json:"key,omitempty"`  // "new", "indeterminate", "done"
	Name string `json:"name,omitempty"` // "To Do", "In Progress", "Done"
}

// Priority represents a JIRA priority.
type Priority struct {
	ID      string `json:"id,omitempty"`
	Self    string `json:"self,omitempty"`
	Name    string `json:"name,omitempty"`
	IconURL string `json:"iconUrl,omitempty"`
}

// Resolution represents an issue resolution.
type Resolution struct {
	ID          string `json:"id,omitempty"`
	Self        string `json:"self,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// IssueType represents a JIRA issue type.
type IssueType struct {
	ID          string `json:"id,omitempty"`
	Self        string `json:"self,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"iconUrl,omitempty"`
	Subtask     bool   `json:"subtask,omitempty"`
}

// Project represents a JIRA project.
type Project struct {
	ID         string      `json:"id,omitempty"`
	Self       string      `json:"self,omitempty"`
	Key        string      `json:"key,omitempty"`
	Name       string      `json:"name,omitempty"`
	IssueTypes []IssueType `json:"issuetypes,omitempty"`
}

// String returns the project key.
func (p Project) String() string {
	return p.Key
}

// TimeTracking holds estimate and logged time for an issue.
type TimeTracking struct {
	OriginalEstimate         string `json:"originalEstimate,omitempty"`
	RemainingEstimate        string `json:"remainingEstimate,omitempty"`
	TimeSpent                string `json:"timeSpent,omitempty"`
	OriginalEstimateSeconds  int    `json:"originalEstimateSeconds,omitempty"`
	RemainingEstimateSeconds int    `json:"remainingEstimateSeconds,omitempty"`
	TimeSpentSeconds         int    `json:"timeSpentSeconds,omitempty"`
}

// Comment represents a single JIRA comment.
type Comment struct {
	ID           string `json:"id,omitempty"`
	Self         string `json:"self,omitempty"`
	Author       *User  `json:"author,omitempty"`
	UpdateAuthor *User  `json:"updateAuthor,omitempty"`
	Body         string `json:"body"`
	Created      *Time  `json:"created,omitempty"`
	Updated      *Time  `json:"updated,omitempty"`
}

// Attachment is a file attached to an issue.
type Attachment struct {
	ID        string `json:"id,omitempty"`
	Self      string `json:"self,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Author    *User  `json:"author,omitempty"`
	Created   *Time  `json:"created,omitempty"`
	Size      int64  `json:"size,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Content   string `json:"content,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// IssueLinkType names a relationship between issues.
type IssueLinkType struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Inward  string `json:"inward,omitempty"`
	Outward string `json:"outward,omitempty"`
	Self    string `json:"self,omitempty"`
}

// IssueLink is a typed relationship between two issues.
type IssueLink struct {
	ID           string        `json:"id,omitempty"`
	Self         string        `json:"self,omitempty"`
	Type         IssueLinkType `json:"type"`
	InwardIssue  IssueRef      `json:"inwardIssue"`
	OutwardIssue IssueRef      `json:"outwardIssue"`
}

// RemoteLink is an external URL attached to an issue.
type RemoteLink struct {
	ID      int64  `json:"id,omitempty"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Transition is a workflow state change available to an issue.
type Transition struct {
	ID     string               `json:"id"`
	Name   string               `json:"name,omitempty"`
	To     *Status              `json:"to,omitempty"`
	Fields map[string]FieldMeta `json:"fields,omitempty"`
}

// FieldMeta describes an editable field on a create screen or transition.
type FieldMeta struct {
	Required        bool              `json:"required"`
	Schema          FieldSchema       `json:"schema"`
	Name            string            `json:"name,omitempty"`
	Key             string            `json:"key,omitempty"`
	HasDefaultValue bool              `json:"hasDefaultValue,omitempty"`
	Operations      []string          `json:"operations,omitempty"`
	AllowedValues   []json.RawMessage `json:"allowedValues,omitempty"`
}

// FieldSchema describes the value type of a field.
type FieldSchema struct {
	Type     string `json:"type,omitempty"`
	Items    string `json:"items,omitempty"`
	System   string `json:"system,omitempty"`
	Custom   string `json:"custom,omitempty"`
	CustomID int    `json:"customId,omitempty"`
}

// Worklog is a unit of time logged against an issue.
type Worklog struct {
	ID               string `json:"id,omitempty"`
	Self             string `json:"self,omitempty"`
	Author           *User  `json:"author,omitempty"`
	UpdateAuthor     *User  `json:"updateAuthor,omitempty"`
	Comment          string `json:"comment,omitempty"`
	TimeSpent        string `json:"timeSpent,omitempty"`
	TimeSpentSeconds int    `json:"timeSpentSeconds,omitempty"`
	Started          *Time  `json:"started,omitempty"`
	Created          *Time  `json:"created,omitempty"`
	Updated          *Time  `json:"updated,omitempty"`
}

// WorklogPage is the paged worklog container embedded in issue fields.
type WorklogPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Worklogs   []Worklog `json:"worklogs"`
}

// Session describes the authenticated session.
type Session struct {
	Self      string    `json:"self,omitempty"`
	Name      string    `json:"name,omitempty"`
	LoginInfo LoginInfo `json:"loginInfo"`
}

// LoginInfo carries login statistics for the session user.
type LoginInfo struct {
	FailedLoginCount    int   `json:"failedLoginCount,omitempty"`
	LoginCount          int   `json:"loginCount,omitempty"`
	LastFailedLoginTime *Time `json:"lastFailedLoginTime,omitempty"`
	PreviousLoginTime   *Time `json:"previousLoginTime,omitempty"`
}

// ServerInfo represents the response from serverInfo.
type ServerInfo struct {
	BaseURL        string `json:"baseUrl"`
	Version        string `json:"version"`
	VersionNumbers []int  `json:"versionNumbers,omitempty"`
	DeploymentType string `json:"deploymentType,omitempty"`
	BuildNumber    int    `json:"buildNumber,omitempty"`
	BuildDate      *Time  `json:"buildDate,omitempty"`
	ServerTime     *Time  `json:"serverTime,omitempty"`
	ScmInfo        string `json:"scmInfo,omitempty"`
	ServerTitle    string `json:"serverTitle,omitempty"`
}

// IssueMeta is the create metadata returned by issue/createmeta.
type IssueMeta struct {
	Expand   string        `json:"expand,omitempty"`
	Projects []ProjectMeta `json:"projects"`
}

// ProjectMeta lists the issue types that can be created in a project.
type ProjectMeta struct {
	Project
	IssueTypes []IssueTypeMeta `json:"issuetypes"`
}

// IssueTypeMeta lists the fields of an issue type's create screen.
type IssueTypeMeta struct {
	IssueType
	Fields map[string]FieldMeta `json:"fields,omitempty"`
}

// searchResults is the response from the search endpoint.
type searchResults struct {
	Expand     string  `json:"expand,omitempty"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// commentsResponse wraps the comments array from the comment endpoint.
type commentsResponse struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Comments   []Comment `json:"comments"`
}

// watchersResponse is the response from the watchers endpoint.
type watchersResponse struct {
	Self       string `json:"self,omitempty"`
	IsWatching bool   `json:"isWatching"`
	WatchCount int    `json:"watchCount"`
	Watchers   []User `json:"watchers"`
}

// transitionsResponse is the response from GET transitions.
type transitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// remoteLinkResult is the wire form of a remote link.
type remoteLinkResult struct {
	ID       int64            `json:"id"`
	Self     string           `json:"self,omitempty"`
	GlobalID string           `json:"globalId,omitempty"`
	Object   remoteLinkObject `json:"object"`
}

type remoteLinkObject struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
}

func (r remoteLinkResult) remoteLink() RemoteLink {
	return RemoteLink{
		ID:      r.ID,
		URL:     r.Object.URL,
		Title:   r.Object.Title,
		Summary: r.Object.Summary,
	}
}
