package history

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/asheshgoplani/agent-history/internal/logging"
)

var corpusLog = logging.ForComponent(logging.CompCorpus)

const (
	sessionExt     = ".jsonl"
	subagentPrefix = "agent-"
	subagentDir    = "subagents"
)

// Corpus is the on-disk transcript tree: <dir>/<project-id>/<session-id>.jsonl,
// with sub-agent transcripts under <project-id>/<session-id>/subagents/.
type Corpus struct {
	ProjectsDir string
	// Workers bounds parallel file scans; zero uses GOMAXPROCS.
	Workers int
}

// NewCorpus returns the corpus rooted at <claudeDir>/projects.
func NewCorpus(claudeDir string) *Corpus {
	return &Corpus{ProjectsDir: filepath.Join(claudeDir, "projects")}
}

// ProjectDir returns the directory of a project id.
func (c *Corpus) ProjectDir(id string) string {
	return filepath.Join(c.ProjectsDir, id)
}

// SessionFile is one transcript to scan. Parent is set for sub-agent
// transcripts and names the session that spawned them.
type SessionFile struct {
	ProjectID string
	SessionID string
	Path      string
	Parent    string
}

// Scope selects the projects an operation covers. Projects wins over All,
// All wins over Current.
type Scope struct {
	Projects []string
	All      bool
	Current  string
}

var projectIDPattern = regexp.MustCompile(`[^a-zA-Z0-9-]`)

// ProjectIDFromPath converts a working directory into its project id, the
// directory name Claude Code stores its transcripts under.
func ProjectIDFromPath(path string) string {
	path = strings.TrimRight(path, string(filepath.Separator))
	if path == "" {
		return ""
	}
	return projectIDPattern.ReplaceAllString(path, "-")
}

// CurrentProject maps a working directory to a project id, returning ""
// when the corpus has no project for it.
func (c *Corpus) CurrentProject(cwd string) string {
	id := ProjectIDFromPath(cwd)
	if id == "" {
		return ""
	}
	if info, err := os.Stat(c.ProjectDir(id)); err != nil || !info.IsDir() {
		return ""
	}
	return id
}

// ProjectIDs lists every project directory, sorted by name.
func (c *Corpus) ProjectIDs() ([]string, error) {
	entries, err := os.ReadDir(c.ProjectsDir)
	if err != nil {
		return nil, ioError(err, "cannot read projects directory %s", c.ProjectsDir)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Corpus) projectExists(id string) bool {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return false
	}
	info, err := os.Stat(c.ProjectDir(id))
	return err == nil && info.IsDir()
}

// projectNotFound builds the error for an unknown explicit project, with
// the known projects ranked by similarity to the requested id.
func (c *Corpus) projectNotFound(id string) *Error {
	e := newError(KindProjectNotFound, "project not found: %s", id)
	e.Available = c.availableProjects(id)
	return e
}

func (c *Corpus) availableProjects(query string) []ProjectRef {
	ids, err := c.ProjectIDs()
	if err != nil {
		return nil
	}
	ordered := ids
	if query != "" {
		matches := fuzzy.Find(query, ids)
		ranked := make([]string, 0, len(ids))
		seen := make(map[int]bool, len(matches))
		for _, m := range matches {
			ranked = append(ranked, m.Str)
			seen[m.Index] = true
		}
		for i, id := range ids {
			if !seen[i] {
				ranked = append(ranked, id)
			}
		}
		ordered = ranked
	}
	out := make([]ProjectRef, len(ordered))
	for i, id := range ordered {
		out[i] = ProjectRef{ID: id, Path: projectPath(id)}
	}
	return out
}

// projectPath is the display path of a project id.
func projectPath(id string) string {
	return strings.ReplaceAll(id, "-", "/")
}

// searchProjects resolves the projects a search covers. Without an explicit
// project, All, or a current project the call fails with no_current_project.
func (c *Corpus) searchProjects(scope Scope) ([]string, error) {
	switch {
	case len(scope.Projects) > 0:
		for _, id := range scope.Projects {
			if !c.projectExists(id) {
				return nil, c.projectNotFound(id)
			}
		}
		return scope.Projects, nil
	case scope.All:
		return c.ProjectIDs()
	case scope.Current != "":
		return []string{scope.Current}, nil
	default:
		e := newError(KindNoCurrentProject, "cannot determine the current project, pass a project or search all projects")
		e.Available = c.availableProjects("")
		return nil, e
	}
}

// lookupProjects resolves the projects a ref lookup covers: the explicit
// project, else the current one, else every project.
func (c *Corpus) lookupProjects(scope Scope) ([]string, error) {
	switch {
	case len(scope.Projects) > 0:
		for _, id := range scope.Projects {
			if !c.projectExists(id) {
				return nil, c.projectNotFound(id)
			}
		}
		return scope.Projects, nil
	case !scope.All && scope.Current != "":
		return []string{scope.Current}, nil
	default:
		ids, err := c.ProjectIDs()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil
			}
			return nil, err
		}
		return ids, nil
	}
}

// sessionIDFromFilename returns the session id of a top-level transcript
// file name; sub-agent files and other names yield "".
func sessionIDFromFilename(name string) string {
	id, ok := strings.CutSuffix(name, sessionExt)
	if !ok || id == "" || strings.HasPrefix(id, subagentPrefix) {
		return ""
	}
	return id
}

// Sessions lists the top-level session files of a project. A missing
// project directory yields no sessions.
func (c *Corpus) Sessions(projectID string) []SessionFile {
	dir := c.ProjectDir(projectID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			corpusLog.Warn("project_read_failed",
				slog.String("project", projectID),
				slog.String("error", err.Error()))
		}
		return nil
	}
	var out []SessionFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := sessionIDFromFilename(e.Name())
		if id == "" {
			continue
		}
		out = append(out, SessionFile{
			ProjectID: projectID,
			SessionID: id,
			Path:      filepath.Join(dir, e.Name()),
		})
	}
	return out
}

// Subagents lists <project>/*/subagents/agent-*.jsonl. The session id of a
// sub-agent transcript is its file stem.
func (c *Corpus) Subagents(projectID string) []SessionFile {
	pattern := filepath.Join(c.ProjectDir(projectID), "*", subagentDir, subagentPrefix+"*"+sessionExt)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil
	}
	sort.Strings(paths)
	out := make([]SessionFile, 0, len(paths))
	for _, p := range paths {
		out = append(out, SessionFile{
			ProjectID: projectID,
			SessionID: strings.TrimSuffix(filepath.Base(p), sessionExt),
			Path:      p,
			Parent:    filepath.Base(filepath.Dir(filepath.Dir(p))),
		})
	}
	return out
}

// FindSession returns the first session in scope whose ref prefix equals
// prefix. Sub-agent transcripts are not addressable by ref.
func (c *Corpus) FindSession(scope Scope, prefix string) (SessionFile, error) {
	projects, err := c.lookupProjects(scope)
	if err != nil {
		return SessionFile{}, err
	}
	for _, pid := range projects {
		for _, sf := range c.Sessions(pid) {
			if RefPrefix(sf.SessionID) == prefix {
				return sf, nil
			}
		}
	}
	return SessionFile{}, newError(KindSessionNotFound, "session not found: %s", prefix)
}
