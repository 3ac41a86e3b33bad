package history

import (
	"os"
	"sort"
	"time"
)

// ProjectInfo summarises one project directory.
type ProjectInfo struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	SessionCount int    `json:"session_count"`
	LastActivity string `json:"last_activity"`
}

// ProjectsResponse lists projects, most recently active first.
type ProjectsResponse struct {
	Projects []ProjectInfo `json:"projects"`
}

// Projects lists every project with its session count and the newest
// session modification time.
func (c *Corpus) Projects() (*ProjectsResponse, error) {
	ids, err := c.ProjectIDs()
	if err != nil {
		return nil, err
	}
	projects := make([]ProjectInfo, 0, len(ids))
	for _, id := range ids {
		info := ProjectInfo{ID: id, Path: projectPath(id)}
		var last time.Time
		for _, sf := range c.Sessions(id) {
			info.SessionCount++
			if st, err := os.Stat(sf.Path); err == nil && st.ModTime().After(last) {
				last = st.ModTime()
			}
		}
		if !last.IsZero() {
			info.LastActivity = last.UTC().Format("2006-01-02T15:04:05Z")
		}
		projects = append(projects, info)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].LastActivity > projects[j].LastActivity
	})
	return &ProjectsResponse{Projects: projects}, nil
}

// SessionInfo summarises one session transcript.
type SessionInfo struct {
	ID        string `json:"id"`
	RefPrefix string `json:"ref_prefix"`
	LineCount int    `json:"line_count"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	SizeBytes int64  `json:"size_bytes"`
}

// SessionsResponse lists the sessions of one project, latest first.
type SessionsResponse struct {
	Project  string        `json:"project"`
	Sessions []SessionInfo `json:"sessions"`
}

// SessionList lists the sessions of the explicit project in scope, or of the
// current project.
func (c *Corpus) SessionList(scope Scope) (*SessionsResponse, error) {
	var id string
	switch {
	case len(scope.Projects) > 0:
		id = scope.Projects[0]
	case scope.Current != "":
		id = scope.Current
	default:
		return nil, newError(KindNoCurrentProject, "cannot determine the current project, pass a project")
	}
	if !c.projectExists(id) {
		return nil, c.projectNotFound(id)
	}

	files := c.Sessions(id)
	sessions := make([]SessionInfo, 0, len(files))
	for _, sf := range files {
		info := SessionInfo{ID: sf.SessionID, RefPrefix: RefPrefix(sf.SessionID)}
		if st, err := os.Stat(sf.Path); err == nil {
			info.SizeBytes = st.Size()
		}
		_ = eachLine(sf.Path, func(_ int, line []byte) bool {
			info.LineCount++
			if rec, err := DecodeRecord(line); err == nil {
				if info.StartTime == "" {
					info.StartTime = rec.Timestamp
				}
				info.EndTime = rec.Timestamp
			}
			return true
		})
		sessions = append(sessions, info)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].EndTime > sessions[j].EndTime
	})
	return &SessionsResponse{Project: id, Sessions: sessions}, nil
}
