package jira

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
)

// CustomFieldPrefix is the key prefix JIRA uses for custom fields.
const CustomFieldPrefix = "customfield_"

// IsCustomFieldKey reports whether key names a custom field.
func IsCustomFieldKey(key string) bool {
	return strings.HasPrefix(key, CustomFieldPrefix) && len(key) > len(CustomFieldPrefix)
}

// IssueFields contains the fields of an issue.
//
// Scalar fields left at their zero value and nil pointers are treated as
// unset: they are never sent on create or update. Custom fields live in
// CustomFields keyed by their "customfield_NNNNN" id.
type IssueFields struct {
	Summary        string        `json:"summary,omitempty"`
	Description    string        `json:"description,omitempty"`
	TimeTracking   *TimeTracking `json:"timetracking,omitempty"`
	Status         *Status       `json:"status,omitempty"`
	Parent         *IssueRef     `json:"parent,omitempty"`
	Resolution     *Resolution   `json:"resolution,omitempty"`
	ResolutionDate *Time         `json:"resolutiondate,omitempty"`
	DueDate        *Date         `json:"duedate,omitempty"`
	Created        *Time         `json:"created,omitempty"`
	Updated        *Time         `json:"updated,omitempty"`
	Priority       *Priority     `json:"priority,omitempty"`
	Project        *Project      `json:"project,omitempty"`
	IssueType      *IssueType    `json:"issuetype,omitempty"`
	Reporter       *User         `json:"reporter,omitempty"`
	Assignee       *User         `json:"assignee,omitempty"`

	Labels      []string     `json:"labels"`
	IssueLinks  []IssueLink  `json:"issuelinks"`
	Attachments []Attachment `json:"attachment"`
	Subtasks    []Issue      `json:"subtasks"`
	Worklog     WorklogPage  `json:"worklog"`

	// Comments and Watchers are filled by LoadIssue from their own endpoints.
	Comments []Comment `json:"-"`
	Watchers []User    `json:"-"`

	CustomFields map[string]any `json:"-"`
}

// NewIssueFields returns fields with every collection initialized.
func NewIssueFields() IssueFields {
	var f IssueFields
	f.normalize()
	return f
}

func (f *IssueFields) normalize() {
	if f.Labels == nil {
		f.Labels = []string{}
	}
	if f.IssueLinks == nil {
		f.IssueLinks = []IssueLink{}
	}
	if f.Attachments == nil {
		f.Attachments = []Attachment{}
	}
	if f.Subtasks == nil {
		f.Subtasks = []Issue{}
	}
	if f.Worklog.Worklogs == nil {
		f.Worklog.Worklogs = []Worklog{}
	}
	if f.Comments == nil {
		f.Comments = []Comment{}
	}
	if f.Watchers == nil {
		f.Watchers = []User{}
	}
	if f.CustomFields == nil {
		f.CustomFields = map[string]any{}
	}
}

// SetCustomField sets a custom field value. A nil value removes the entry.
func (f *IssueFields) SetCustomField(key string, value any) error {
	if !IsCustomFieldKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidCustomFieldKey, key)
	}
	if value == nil {
		delete(f.CustomFields, key)
		return nil
	}
	if f.CustomFields == nil {
		f.CustomFields = map[string]any{}
	}
	f.CustomFields[key] = value
	return nil
}

// CustomField returns the value of a custom field.
func (f *IssueFields) CustomField(key string) (any, bool) {
	v, ok := f.CustomFields[key]
	return v, ok
}

// issueFieldsAlias drops the methods of IssueFields to avoid recursion.
type issueFieldsAlias IssueFields

// UnmarshalJSON decodes the known fields, collects every non-null
// customfield_* entry and guarantees non-nil collections.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	var known issueFieldsAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = IssueFields(known)
	f.CustomFields = map[string]any{}
	for key, value := range raw {
		if !IsCustomFieldKey(key) || string(value) == "null" {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		f.CustomFields[key] = v
	}
	f.normalize()
	return nil
}

// MarshalJSON encodes the known fields and adds the custom fields to the
// same object. Custom values are copied as is, nested nulls included.
func (f IssueFields) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(issueFieldsAlias(f))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(f.CustomFields))
	for key, value := range f.CustomFields {
		if value != nil && IsCustomFieldKey(key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return base, nil
	}
	slices.Sort(keys)

	ops := make([]patchOperation, 0, len(keys))
	for _, key := range keys {
		ops = append(ops, patchOperation{Op: "add", Path: "/" + pointerEscaper.Replace(key), Value: f.CustomFields[key]})
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, fmt.Errorf("building custom field patch: %w", err)
	}
	return patch.Apply(base)
}

// patchOperation is one RFC 6902 operation.
type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// pointerEscaper escapes a key for use as a JSON pointer token.
var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// customFieldEntries returns the non-nil custom fields, rejecting keys that
// do not follow the custom field naming convention.
func (f *IssueFields) customFieldEntries() (map[string]any, error) {
	entries := make(map[string]any, len(f.CustomFields))
	for key, value := range f.CustomFields {
		if value == nil {
			continue
		}
		if !IsCustomFieldKey(key) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCustomFieldKey, key)
		}
		entries[key] = value
	}
	return entries, nil
}
