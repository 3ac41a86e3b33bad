package history

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxDirectContent is the largest rendered message Get returns inline
// without a character range or output directory.
const MaxDirectContent = 100_000

// CharRange selects characters [Start, End) of a message.
type CharRange struct {
	Start int
	End   int
}

// ParseCharRange parses "start-end".
func ParseCharRange(s string) (CharRange, error) {
	lo, hi, ok := strings.Cut(s, "-")
	if ok {
		start, errLo := strconv.Atoi(strings.TrimSpace(lo))
		end, errHi := strconv.Atoi(strings.TrimSpace(hi))
		if errLo == nil && errHi == nil && start >= 0 && end >= 0 {
			return CharRange{Start: start, End: end}, nil
		}
	}
	return CharRange{}, newError(KindInvalidArgument, "invalid range %q, expected <start>-<end>", s)
}

// GetOptions describes a full-content lookup.
type GetOptions struct {
	Ref   string
	Scope Scope
	Range *CharRange
	// OutputDir, when set, receives the content and decoded images.
	OutputDir string
}

// OutputFiles lists the files written by an export.
type OutputFiles struct {
	Content string   `json:"content"`
	Images  []string `json:"images"`
}

// GetResponse is the full content of one message, a too-large notice, or
// the result of an export. Exactly one of the three shapes is populated.
type GetResponse struct {
	Ref         string
	Type        string
	Content     string
	ContentSize int
	ImageCount  int
	Output      *OutputFiles

	// TooLarge is set instead of Content when the message exceeds
	// MaxDirectContent.
	TooLarge   bool
	Suggestion string
}

func (r GetResponse) MarshalJSON() ([]byte, error) {
	switch {
	case r.TooLarge:
		return json.Marshal(struct {
			Error      string `json:"error"`
			Ref        string `json:"ref"`
			Size       int    `json:"size"`
			Suggestion string `json:"suggestion"`
		}{"content_too_large", r.Ref, r.ContentSize, r.Suggestion})
	case r.Output != nil:
		return json.Marshal(struct {
			Ref         string       `json:"ref"`
			Output      *OutputFiles `json:"output"`
			ContentSize int          `json:"content_size"`
			ImageCount  int          `json:"image_count"`
		}{r.Ref, r.Output, r.ContentSize, r.ImageCount})
	default:
		return json.Marshal(struct {
			Ref         string `json:"ref"`
			Type        string `json:"type"`
			Content     string `json:"content"`
			ContentSize int    `json:"content_size"`
			ImageCount  int    `json:"image_count"`
		}{r.Ref, r.Type, r.Content, r.ContentSize, r.ImageCount})
	}
}

// Get returns the rendered content of one message.
func (c *Corpus) Get(opts GetOptions) (*GetResponse, error) {
	ref, err := ParseRef(opts.Ref)
	if err != nil {
		return nil, err
	}
	sf, err := c.FindSession(opts.Scope, ref.Prefix)
	if err != nil {
		return nil, err
	}
	line, ok, err := readLine(sf.Path, ref.Line)
	if err != nil {
		return nil, ioError(err, "cannot read session %s", sf.SessionID)
	}
	if !ok {
		return nil, newError(KindRefNotFound, "ref not found: %s", opts.Ref)
	}
	rec, err := DecodeRecord(line)
	if err != nil {
		return nil, &Error{Kind: KindParse, Message: "cannot parse message " + opts.Ref, Err: err}
	}

	content := rec.Body.Render()
	size := utf8.RuneCountInString(content)
	imageCount := len(rec.Body.Images())

	if opts.OutputDir != "" {
		files, err := exportMessage(opts.OutputDir, opts.Ref, rec.Body, content)
		if err != nil {
			return nil, err
		}
		return &GetResponse{Ref: opts.Ref, Output: files, ContentSize: size, ImageCount: imageCount}, nil
	}

	if opts.Range != nil {
		part := sliceRunes(content, opts.Range.Start, opts.Range.End)
		return &GetResponse{Ref: opts.Ref, Type: rec.Type, Content: part, ContentSize: size, ImageCount: imageCount}, nil
	}

	if size > MaxDirectContent {
		return &GetResponse{
			Ref:         opts.Ref,
			Type:        rec.Type,
			ContentSize: size,
			ImageCount:  imageCount,
			TooLarge:    true,
			Suggestion:  fmt.Sprintf("export with an output directory, or fetch in chunks with range 0-%d", MaxDirectContent),
		}, nil
	}
	return &GetResponse{Ref: opts.Ref, Type: rec.Type, Content: content, ContentSize: size, ImageCount: imageCount}, nil
}

// sliceRunes returns characters [start, end) of s, clamped to its length.
func sliceRunes(s string, start, end int) string {
	runes := []rune(s)
	end = min(end, len(runes))
	start = min(start, end)
	return string(runes[start:end])
}

func imageExt(mediaType string) string {
	switch mediaType {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// exportMessage writes <ref>.txt and one <ref>_img<index>.<ext> per
// decodable image into dir, with ":" in the ref replaced by "_".
func exportMessage(dir, ref string, body Body, content string) (*OutputFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ioError(err, "cannot create output directory %s", dir)
	}
	base := strings.ReplaceAll(ref, ":", "_")

	contentPath := filepath.Join(dir, base+".txt")
	if err := os.WriteFile(contentPath, []byte(content), 0o644); err != nil {
		return nil, ioError(err, "cannot write %s", contentPath)
	}

	files := &OutputFiles{Content: contentPath, Images: []string{}}
	for i, block := range body.Blocks {
		if block.Kind != BlockImage {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(block.Data)
		if err != nil {
			continue
		}
		p := filepath.Join(dir, fmt.Sprintf("%s_img%d.%s", base, i, imageExt(block.MediaType)))
		if err := os.WriteFile(p, data, 0o644); err != nil {
			continue
		}
		files.Images = append(files.Images, p)
	}
	return files, nil
}
