package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ResolvesRef(t *testing.T) {
	tc := newTestCorpus(t)
	var lines []string
	for i := 1; i <= 60; i++ {
		lines = append(lines, msg(fmt.Sprint(i), "assistant", "2025-01-01T00:00:00Z", fmt.Sprintf("line %d", i)))
	}
	tc.writeSession(projA, sessA, lines...)

	resp, err := tc.Get(GetOptions{Ref: "abcd1234:50", Scope: Scope{Current: projA}})
	require.NoError(t, err)
	assert.Equal(t, "line 50", resp.Content)
	assert.Equal(t, "assistant", resp.Type)
	assert.Equal(t, 7, resp.ContentSize)

	_, err = tc.Get(GetOptions{Ref: "abcd1234:9999", Scope: Scope{Current: projA}})
	assert.Equal(t, KindRefNotFound, KindOf(err))
}

func TestGet_Errors(t *testing.T) {
	tc := newTestCorpus(t)
	tc.writeSession(projA, sessA,
		msg("1", "user", "2025-01-01T00:00:00Z", "fine"),
		`{"uuid":"2","type":`,
	)

	_, err := tc.Get(GetOptions{Ref: "nope"})
	assert.Equal(t, KindInvalidRef, KindOf(err))

	_, err = tc.Get(GetOptions{Ref: "00000000:1"})
	assert.Equal(t, KindSessionNotFound, KindOf(err))

	_, err = tc.Get(GetOptions{Ref: "abcd1234:2"})
	assert.Equal(t, KindParse, KindOf(err))
}

func TestGet_Range(t *testing.T) {
	tc := newTestCorpus(t)
	tc.writeSession(projA, sessA, msg("1", "user", "2025-01-01T00:00:00Z", "héllo wörld"))

	resp, err := tc.Get(GetOptions{Ref: "abcd1234:1", Range: &CharRange{Start: 6, End: 11}})
	require.NoError(t, err)
	assert.Equal(t, "wörld", resp.Content)
	assert.Equal(t, 11, resp.ContentSize)

	resp, err = tc.Get(GetOptions{Ref: "abcd1234:1", Range: &CharRange{Start: 20, End: 30}})
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
}

func TestGet_TooLarge(t *testing.T) {
	tc := newTestCorpus(t)
	big := strings.Repeat("z", MaxDirectContent+1)
	tc.writeSession(projA, sessA, msg("1", "assistant", "2025-01-01T00:00:00Z", big))

	resp, err := tc.Get(GetOptions{Ref: "abcd1234:1"})
	require.NoError(t, err)
	assert.True(t, resp.TooLarge)
	assert.Empty(t, resp.Content)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "content_too_large", decoded["error"])
	assert.EqualValues(t, MaxDirectContent+1, decoded["size"])
	assert.NotContains(t, decoded, "content")

	resp, err = tc.Get(GetOptions{Ref: "abcd1234:1", Range: &CharRange{Start: 0, End: 10}})
	require.NoError(t, err)
	assert.False(t, resp.TooLarge)
	assert.Equal(t, "zzzzzzzzzz", resp.Content)
}

func TestGet_Export(t *testing.T) {
	tc := newTestCorpus(t)
	tc.writeSession(projA, sessA, blocksMsg("1", "user", "2025-01-01T00:00:00Z",
		textBlock("see attached"),
		imageBlock("aGVsbG8=", "image/jpeg"),
		imageBlock("!!not base64!!", "image/png"),
	))
	out := filepath.Join(t.TempDir(), "export")

	resp, err := tc.Get(GetOptions{Ref: "abcd1234:1", OutputDir: out})
	require.NoError(t, err)
	require.NotNil(t, resp.Output)
	assert.Equal(t, 2, resp.ImageCount)

	text, err := os.ReadFile(resp.Output.Content)
	require.NoError(t, err)
	assert.Equal(t, "see attached\n[IMAGE:1 size=0.0MB]\n[IMAGE:2 size=0.0MB]", string(text))
	assert.Equal(t, filepath.Join(out, "abcd1234_1.txt"), resp.Output.Content)

	require.Equal(t, []string{filepath.Join(out, "abcd1234_1_img1.jpg")}, resp.Output.Images)
	img, err := os.ReadFile(resp.Output.Images[0])
	require.NoError(t, err)
	assert.Equal(t, "hello", string(img))

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`{"ref":"abcd1234:1","output":{"content":%q,"images":[%q]},"content_size":%d,"image_count":2}`,
		resp.Output.Content, resp.Output.Images[0], resp.ContentSize), string(data))
}

func TestGetResponse_JSONKeepsZeroSize(t *testing.T) {
	data, err := json.Marshal(&GetResponse{Ref: "abcd1234:1", Type: "summary"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ref":"abcd1234:1","type":"summary","content":"","content_size":0,"image_count":0}`, string(data))
}

func TestParseCharRange(t *testing.T) {
	r, err := ParseCharRange("100-250")
	require.NoError(t, err)
	assert.Equal(t, CharRange{Start: 100, End: 250}, r)

	for _, s := range []string{"", "100", "a-b", "-5", "5-", "1-2-3"} {
		_, err := ParseCharRange(s)
		assert.Equal(t, KindInvalidArgument, KindOf(err), s)
	}
}

func TestImageExt(t *testing.T) {
	assert.Equal(t, "jpg", imageExt("image/jpeg"))
	assert.Equal(t, "gif", imageExt("image/gif"))
	assert.Equal(t, "webp", imageExt("image/webp"))
	assert.Equal(t, "png", imageExt("image/png"))
	assert.Equal(t, "png", imageExt(""))
}
