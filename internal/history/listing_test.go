package history

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjects(t *testing.T) {
	tc := seedCorpus(t)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	for _, sf := range tc.Sessions(projA) {
		require.NoError(t, os.Chtimes(sf.Path, older, older))
	}
	for _, sf := range tc.Sessions(projB) {
		require.NoError(t, os.Chtimes(sf.Path, newer, newer))
	}
	require.NoError(t, os.MkdirAll(tc.ProjectDir("-empty"), 0o755))

	resp, err := tc.Projects()
	require.NoError(t, err)
	assert.Equal(t, []ProjectInfo{
		{ID: projB, Path: "/home/dev/lib", SessionCount: 1, LastActivity: "2025-06-01T12:30:00Z"},
		{ID: projA, Path: "/home/dev/app", SessionCount: 2, LastActivity: "2025-01-01T00:00:00Z"},
		{ID: "-empty", Path: "/empty", SessionCount: 0},
	}, resp.Projects)
}

func TestProjects_MissingDir(t *testing.T) {
	c := &Corpus{ProjectsDir: t.TempDir() + "/absent"}
	_, err := c.Projects()
	assert.Equal(t, KindIO, KindOf(err))
}

func TestSessionList(t *testing.T) {
	tc := seedCorpus(t)

	resp, err := tc.SessionList(Scope{Current: projA})
	require.NoError(t, err)
	assert.Equal(t, projA, resp.Project)
	require.Len(t, resp.Sessions, 2)

	// "not-a-date" sorts after ISO timestamps.
	b := resp.Sessions[0]
	assert.Equal(t, sessB, b.ID)
	assert.Equal(t, "ef567890", b.RefPrefix)
	assert.Equal(t, 2, b.LineCount)
	assert.Equal(t, "2025-01-02T09:00:00Z", b.StartTime)
	assert.Equal(t, "not-a-date", b.EndTime)

	a := resp.Sessions[1]
	assert.Equal(t, sessA, a.ID)
	assert.Equal(t, 5, a.LineCount, "malformed lines are counted")
	assert.Equal(t, "2025-01-01T10:00:00Z", a.StartTime)
	assert.Equal(t, "2025-01-01T10:00:09Z", a.EndTime)
	info, err := os.Stat(tc.ProjectDir(projA) + "/" + sessA + sessionExt)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), a.SizeBytes)
}

func TestSessionList_Scope(t *testing.T) {
	tc := seedCorpus(t)

	resp, err := tc.SessionList(Scope{Projects: []string{projB}, Current: projA})
	require.NoError(t, err)
	assert.Equal(t, projB, resp.Project)
	assert.Len(t, resp.Sessions, 1)

	_, err = tc.SessionList(Scope{})
	assert.Equal(t, KindNoCurrentProject, KindOf(err))

	_, err = tc.SessionList(Scope{Projects: []string{"-home-dev-ap"}})
	var he *Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, KindProjectNotFound, he.Kind)
	assert.Equal(t, projA, he.Available[0].ID)
}
