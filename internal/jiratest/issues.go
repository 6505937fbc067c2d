package jiratest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

var issueTypes = []map[string]any{
	{"id": "1", "name": "Bug", "subtask": false},
	{"id": "2", "name": "Task", "subtask": false},
	{"id": "3", "name": "Story", "subtask": false},
	{"id": "5", "name": "Sub-task", "subtask": true},
}

var transitions = []map[string]any{
	{"id": "11", "name": "To Do", "to": map[string]any{"id": "1", "name": "To Do"}},
	{"id": "21", "name": "In Progress", "to": map[string]any{"id": "3", "name": "In Progress"}},
	{"id": "31", "name": "Done", "to": map[string]any{"id": "10001", "name": "Done"}, "fields": map[string]any{
		"resolution": map[string]any{"required": true, "name": "Resolution", "schema": map[string]any{"type": "resolution", "system": "resolution"}},
	}},
}

func issueTypeByID(id string) map[string]any {
	for _, t := range issueTypes {
		if t["id"] == id {
			return t
		}
	}
	return nil
}

func issueTypeByName(name string) map[string]any {
	for _, t := range issueTypes {
		if strings.EqualFold(t["name"].(string), name) {
			return t
		}
	}
	return nil
}

func (s *Server) newIssueLocked(project string, fields map[string]any) *fakeIssue {
	s.nextID++
	s.projects[project]++
	now := s.now.Format(timeFormat)

	fields["project"] = map[string]any{"key": project, "name": project}
	fields["status"] = map[string]any{"id": "1", "name": "To Do"}
	fields["created"] = now
	fields["updated"] = now
	fields["reporter"] = map[string]any{"name": Username}

	issue := &fakeIssue{
		id:       s.nextID,
		key:      fmt.Sprintf("%s-%d", project, s.projects[project]),
		reporter: Username,
		fields:   fields,
	}
	s.issues[issue.id] = issue
	return issue
}

// lookupLocked resolves an id or key.
func (s *Server) lookupLocked(idOrKey string) *fakeIssue {
	if id, ok := parseID(idOrKey); ok {
		return s.issues[id]
	}
	for _, issue := range s.issues {
		if strings.EqualFold(issue.key, idOrKey) {
			return issue
		}
	}
	return nil
}

func (s *Server) lookupRefLocked(ref map[string]any) *fakeIssue {
	if id, ok := ref["id"]; ok {
		return s.lookupLocked(fmt.Sprint(id))
	}
	if key, ok := ref["key"].(string); ok {
		return s.lookupLocked(key)
	}
	return nil
}

func (s *Server) refLocked(id int64) map[string]any {
	issue := s.issues[id]
	if issue == nil {
		return map[string]any{"id": strconv.FormatInt(id, 10)}
	}
	return map[string]any{
		"id":   strconv.FormatInt(issue.id, 10),
		"key":  issue.key,
		"self": fmt.Sprintf("%s%sissue/%d", s.URL, apiPrefix, issue.id),
	}
}

// issueJSONLocked renders an issue. Links omit the end that is the issue
// itself, like JIRA does.
func (s *Server) issueJSONLocked(issue *fakeIssue, only []string) map[string]any {
	fields := map[string]any{}
	for k, v := range issue.fields {
		fields[k] = v
	}

	links := []map[string]any{}
	for _, link := range s.links {
		entry := map[string]any{
			"id":   strconv.FormatInt(link.id, 10),
			"type": map[string]any{"name": link.typeName, "inward": "is " + strings.ToLower(link.typeName) + " by", "outward": strings.ToLower(link.typeName)},
		}
		switch issue.id {
		case link.inward:
			entry["outwardIssue"] = s.refLocked(link.outward)
		case link.outward:
			entry["inwardIssue"] = s.refLocked(link.inward)
		default:
			continue
		}
		links = append(links, entry)
	}
	fields["issuelinks"] = links
	if _, ok := fields["attachment"]; !ok {
		fields["attachment"] = []any{}
	}
	if _, ok := fields["timetracking"]; !ok {
		fields["timetracking"] = map[string]any{}
	}

	if len(only) > 0 {
		projected := map[string]any{}
		for _, name := range only {
			if v, ok := fields[name]; ok {
				projected[name] = v
			}
		}
		fields = projected
	}

	return map[string]any{
		"expand": "renderedFields,names,schema,transitions,editmeta,changelog",
		"id":     strconv.FormatInt(issue.id, 10),
		"key":    issue.key,
		"self":   fmt.Sprintf("%s%sissue/%d", s.URL, apiPrefix, issue.id),
		"fields": fields,
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	startAt, _ := strconv.Atoi(query.Get("startAt"))
	maxResults, err := strconv.Atoi(query.Get("maxResults"))
	if err != nil || maxResults <= 0 {
		maxResults = 50
	}
	if s.MaxResults > 0 && maxResults > s.MaxResults {
		maxResults = s.MaxResults
	}
	var only []string
	if f := query.Get("fields"); f != "" {
		only = strings.Split(f, ",")
	}

	project, issueType, err := parseJQL(query.Get("jql"))
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matching []*fakeIssue
	for _, issue := range s.issues {
		if project != "" && !strings.EqualFold(issue.key[:strings.LastIndex(issue.key, "-")], project) {
			continue
		}
		if issueType != "" {
			t, _ := issue.fields["issuetype"].(map[string]any)
			if t == nil || !strings.EqualFold(fmt.Sprint(t["name"]), issueType) {
				continue
			}
		}
		matching = append(matching, issue)
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].id < matching[j].id })

	page := []map[string]any{}
	for idx := startAt; idx < len(matching) && len(page) < maxResults; idx++ {
		page = append(page, s.issueJSONLocked(matching[idx], only))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expand":     "schema,names",
		"startAt":    startAt,
		"maxResults": maxResults,
		"total":      len(matching),
		"issues":     page,
	})
}

// parseJQL understands "project=X", "issueType=Y" and their conjunction.
func parseJQL(jql string) (project, issueType string, err error) {
	if strings.TrimSpace(jql) == "" {
		return "", "", nil
	}
	for _, clause := range strings.Split(jql, " AND ") {
		name, value, ok := strings.Cut(clause, "=")
		if !ok {
			return "", "", fmt.Errorf("unsupported JQL clause %q", clause)
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "project":
			project = value
		case "issuetype":
			issueType = value
		default:
			return "", "", fmt.Errorf("field %q does not exist", strings.TrimSpace(name))
		}
	}
	return project, issueType, nil
}

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Fields == nil {
		writeErrors(w, http.StatusBadRequest, "Can not deserialize issue")
		return
	}
	fields := body.Fields

	errs := map[string]string{}
	project, _ := fields["project"].(map[string]any)
	projectKey, _ := project["key"].(string)

	var issueType map[string]any
	if t, ok := fields["issuetype"].(map[string]any); ok {
		if id, ok := t["id"].(string); ok {
			issueType = issueTypeByID(id)
		} else if name, ok := t["name"].(string); ok {
			issueType = issueTypeByName(name)
		}
	}
	if issueType == nil {
		errs["issuetype"] = "valid issue type is required"
	}
	if summary, _ := fields["summary"].(string); summary == "" {
		errs["summary"] = "You must specify a summary of the issue."
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectKey]; !ok {
		errs["project"] = "valid project is required"
	}
	if len(errs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, errs)
		return
	}
	if parent, ok := fields["parent"].(map[string]any); ok {
		if s.lookupRefLocked(parent) == nil {
			writeFieldErrors(w, http.StatusBadRequest, map[string]string{"parent": "Could not find issue"})
			return
		}
	}

	fields["issuetype"] = issueType
	issue := s.newIssueLocked(projectKey, fields)
	writeJSON(w, http.StatusCreated, s.refLocked(issue.id))
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	writeJSON(w, http.StatusOK, s.issueJSONLocked(issue, nil))
}

func (s *Server) handleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Update map[string][]map[string]any `json:"update"`
		Fields map[string]any              `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "Can not deserialize update")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	for field, ops := range body.Update {
		for _, op := range ops {
			value, ok := op["set"]
			if !ok {
				writeFieldErrors(w, http.StatusBadRequest, map[string]string{field: "only set is supported"})
				return
			}
			issue.fields[field] = value
		}
	}
	for field, value := range body.Fields {
		issue.fields[field] = value
	}
	issue.fields["updated"] = s.now.Format(timeFormat)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	delete(s.issues, issue.id)
	if r.URL.Query().Get("deleteSubtasks") == "true" {
		for id, other := range s.issues {
			parent, _ := other.fields["parent"].(map[string]any)
			if parent != nil && s.lookupRefLocked(parent) == nil {
				delete(s.issues, id)
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTransitions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	issue := s.lookupLocked(r.PathValue("id"))
	s.mu.Unlock()

	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	out := make([]map[string]any, 0, len(transitions))
	for _, t := range transitions {
		entry := map[string]any{"id": t["id"], "name": t["name"], "to": t["to"]}
		if r.URL.Query().Get("expand") == "transitions.fields" {
			if fields, ok := t["fields"]; ok {
				entry["fields"] = fields
			} else {
				entry["fields"] = map[string]any{}
			}
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": out})
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Transition struct {
			ID string `json:"id"`
		} `json:"transition"`
		Fields map[string]any `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "Can not deserialize transition")
		return
	}

	var target map[string]any
	for _, t := range transitions {
		if t["id"] == body.Transition.ID {
			target = t
		}
	}
	if target == nil {
		writeErrors(w, http.StatusBadRequest, "Transition id '"+body.Transition.ID+"' is not valid for this issue.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	issue.fields["status"] = target["to"]
	for field, value := range body.Fields {
		issue.fields[field] = value
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatchers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	issue := s.lookupLocked(r.PathValue("id"))
	s.mu.Unlock()

	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"isWatching": true,
		"watchCount": 1,
		"watchers":   []map[string]any{{"name": issue.reporter, "displayName": "Administrator", "active": true}},
	})
}

func (s *Server) handleWorklog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	issue := s.lookupLocked(r.PathValue("id"))
	s.mu.Unlock()

	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"startAt":    0,
		"maxResults": 1,
		"total":      1,
		"worklogs": []map[string]any{{
			"id":               "100",
			"author":           map[string]any{"name": Username},
			"timeSpent":        "1h",
			"timeSpentSeconds": 3600,
			"started":          s.now.Format(timeFormat),
		}},
	})
}
