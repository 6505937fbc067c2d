package jiratest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	comments := issue.comments
	if comments == nil {
		comments = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"startAt":    0,
		"maxResults": len(comments),
		"total":      len(comments),
		"comments":   comments,
	})
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Body == "" {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"comment": "Comment body can not be empty!"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	s.nextSubID++
	comment := map[string]any{
		"id":      strconv.FormatInt(s.nextSubID, 10),
		"self":    fmt.Sprintf("%s%sissue/%d/comment/%d", s.URL, apiPrefix, issue.id, s.nextSubID),
		"author":  map[string]any{"name": Username},
		"body":    body.Body,
		"created": s.now.Format(timeFormat),
		"updated": s.now.Format(timeFormat),
	}
	issue.comments = append(issue.comments, comment)
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "Can not deserialize comment")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	for _, comment := range issue.comments {
		if comment["id"] == r.PathValue("cid") {
			comment["body"] = body.Body
			comment["updateAuthor"] = map[string]any{"name": Username}
			writeJSON(w, http.StatusOK, comment)
			return
		}
	}
	writeErrors(w, http.StatusNotFound, "Can not find a comment for the id: "+r.PathValue("cid")+".")
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	for idx, comment := range issue.comments {
		if comment["id"] == r.PathValue("cid") {
			issue.comments = slices.Delete(issue.comments, idx, idx+1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeErrors(w, http.StatusNotFound, "Can not find a comment for the id: "+r.PathValue("cid")+".")
}

func (s *Server) handleCreateAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Atlassian-Token") != "nocheck" {
		writeErrors(w, http.StatusForbidden, "XSRF check failed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeErrors(w, http.StatusBadRequest, "reading file part")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	s.nextSubID++
	id := s.nextSubID
	attachment := map[string]any{
		"id":       strconv.FormatInt(id, 10),
		"self":     fmt.Sprintf("%s%sattachment/%d", s.URL, apiPrefix, id),
		"filename": header.Filename,
		"author":   map[string]any{"name": Username},
		"created":  s.now.Format(timeFormat),
		"size":     len(data),
		"mimeType": http.DetectContentType(data),
		"content":  fmt.Sprintf("%s/secure/attachment/%d/%s", s.URL, id, header.Filename),
	}
	existing, _ := issue.fields["attachment"].([]any)
	issue.fields["attachment"] = append(existing, attachment)
	s.attachments[id] = issue.id
	writeJSON(w, http.StatusOK, []map[string]any{attachment})
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("aid"))

	s.mu.Lock()
	defer s.mu.Unlock()

	issueID, found := s.attachments[id]
	if !ok || !found {
		writeErrors(w, http.StatusNotFound, "The attachment with id '"+r.PathValue("aid")+"' does not exist")
		return
	}
	delete(s.attachments, id)
	if issue := s.issues[issueID]; issue != nil {
		existing, _ := issue.fields["attachment"].([]any)
		kept := []any{}
		for _, a := range existing {
			if m, ok := a.(map[string]any); ok && m["id"] == strconv.FormatInt(id, 10) {
				continue
			}
			kept = append(kept, a)
		}
		issue.fields["attachment"] = kept
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
		InwardIssue  map[string]any `json:"inwardIssue"`
		OutwardIssue map[string]any `json:"outwardIssue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Type.Name == "" {
		writeErrors(w, http.StatusBadRequest, "Issue link type is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inward := s.lookupRefLocked(body.InwardIssue)
	outward := s.lookupRefLocked(body.OutwardIssue)
	if inward == nil || outward == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	s.nextSubID++
	s.links = append(s.links, &fakeLink{id: s.nextSubID, typeName: body.Type.Name, inward: inward.id, outward: outward.id})
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	id, _ := parseID(r.PathValue("lid"))

	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, link := range s.links {
		if link.id == id {
			s.links = slices.Delete(s.links, idx, idx+1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeErrors(w, http.StatusNotFound, "No issue link with id '"+r.PathValue("lid")+"' exists.")
}

func (s *Server) handleGetRemoteLinks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	links := issue.remote
	if links == nil {
		links = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) handleCreateRemoteLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Application map[string]any `json:"application"`
		Object      map[string]any `json:"object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Object["url"] == nil {
		writeFieldErrors(w, http.StatusBadRequest, map[string]string{"url": "'url' is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	s.nextSubID++
	self := fmt.Sprintf("%s%sissue/%s/remotelink/%d", s.URL, apiPrefix, issue.key, s.nextSubID)
	issue.remote = append(issue.remote, map[string]any{
		"id":          s.nextSubID,
		"self":        self,
		"application": body.Application,
		"object":      body.Object,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": s.nextSubID, "self": self})
}

func (s *Server) handleUpdateRemoteLink(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Object map[string]any `json:"object"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, http.StatusBadRequest, "Can not deserialize remote link")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link := s.remoteLinkLocked(r)
	if link == nil {
		writeErrors(w, http.StatusNotFound, "Remote link does not exist")
		return
	}
	object, _ := link["object"].(map[string]any)
	for k, v := range body.Object {
		object[k] = v
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRemoteLink(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		writeErrors(w, http.StatusNotFound, "Issue Does Not Exist")
		return
	}
	for idx, link := range issue.remote {
		if fmt.Sprint(link["id"]) == r.PathValue("rid") {
			issue.remote = slices.Delete(issue.remote, idx, idx+1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeErrors(w, http.StatusNotFound, "Remote link does not exist")
}

func (s *Server) remoteLinkLocked(r *http.Request) map[string]any {
	issue := s.lookupLocked(r.PathValue("id"))
	if issue == nil {
		return nil
	}
	for _, link := range issue.remote {
		if fmt.Sprint(link["id"]) == r.PathValue("rid") {
			return link
		}
	}
	return nil
}

func (s *Server) handleIssueTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, issueTypes)
}

func (s *Server) handleServerInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"baseUrl":        s.URL,
		"version":        "8.20.10",
		"versionNumbers": []int{8, 20, 10},
		"deploymentType": "Server",
		"buildNumber":    820010,
		"serverTime":     s.now.Format(timeFormat),
		"serverTitle":    "Fake JIRA",
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.projects))
	for key := range s.projects {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	projects := make([]map[string]any, 0, len(keys))
	for idx, key := range keys {
		projects = append(projects, map[string]any{
			"id":   strconv.Itoa(10000 + idx),
			"key":  key,
			"name": key,
		})
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateMeta(w http.ResponseWriter, r *http.Request) {
	keys := strings.Split(r.URL.Query().Get("projectKeys"), ",")

	s.mu.Lock()
	defer s.mu.Unlock()

	projects := []map[string]any{}
	for _, key := range keys {
		if _, ok := s.projects[key]; !ok {
			continue
		}
		types := make([]map[string]any, 0, len(issueTypes))
		for _, t := range issueTypes {
			types = append(types, map[string]any{
				"id":   t["id"],
				"name": t["name"],
				"fields": map[string]any{
					"summary": map[string]any{"required": true, "name": "Summary", "schema": map[string]any{"type": "string", "system": "summary"}},
				},
			})
		}
		projects = append(projects, map[string]any{"key": key, "name": key, "issuetypes": types})
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("username")
	if name != Username {
		writeErrors(w, http.StatusNotFound, "The user named '"+name+"' does not exist")
		return
	}
	writeJSON(w, http.StatusOK, adminUser())
}

func (s *Server) handleUserSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := strings.ToLower(query.Get("username"))
	startAt, _ := strconv.Atoi(query.Get("startAt"))

	users := []map[string]any{}
	if strings.HasPrefix(Username, name) && startAt == 0 {
		users = append(users, adminUser())
	}
	writeJSON(w, http.StatusOK, users)
}

func adminUser() map[string]any {
	return map[string]any{
		"key":          Username,
		"name":         Username,
		"displayName":  "Administrator",
		"emailAddress": "admin@example.com",
		"active":       true,
	}
}
