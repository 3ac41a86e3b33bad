package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BodyKind tags the shape of a message body.
type BodyKind int

const (
	BodyAbsent BodyKind = iota
	BodyPlainText
	BodyBlocks
)

// BlockKind tags one content block inside a block-list body.
type BlockKind int

const (
	BlockOther BlockKind = iota
	BlockText
	BlockImage
)

// Block is a single entry of a block-list body.
type Block struct {
	Kind      BlockKind
	Text      string // BlockText
	Data      string // BlockImage, base64 payload as stored
	MediaType string // BlockImage
}

// Body is the message payload: absent, a plain string, or an ordered block list.
type Body struct {
	Kind   BodyKind
	Text   string
	Blocks []Block
}

// Record is one decoded transcript line.
type Record struct {
	UUID       string
	ParentUUID string
	Type       string
	Timestamp  string
	SessionID  string
	Body       Body
}

// ImageInfo describes an image block: its position in the block list and
// the length of its encoded payload.
type ImageInfo struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

type rawRecord struct {
	UUID       *string         `json:"uuid"`
	ParentUUID *string         `json:"parentUuid"`
	Type       *string         `json:"type"`
	Timestamp  *string         `json:"timestamp"`
	SessionID  *string         `json:"sessionId"`
	Message    json.RawMessage `json:"message"`
}

type rawMessage struct {
	Content json.RawMessage `json:"content"`
}

type rawBlock struct {
	Type   string  `json:"type"`
	Text   *string `json:"text"`
	Source *struct {
		Data      string `json:"data"`
		MediaType string `json:"media_type"`
	} `json:"source"`
}

var errMissingField = errors.New("missing required field")

// DecodeRecord parses one transcript line. uuid, type and timestamp are
// required; a line without them is rejected like any other malformed line.
func DecodeRecord(line []byte) (Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return Record{}, err
	}
	switch {
	case raw.UUID == nil:
		return Record{}, fmt.Errorf("%w: uuid", errMissingField)
	case raw.Type == nil:
		return Record{}, fmt.Errorf("%w: type", errMissingField)
	case raw.Timestamp == nil:
		return Record{}, fmt.Errorf("%w: timestamp", errMissingField)
	}

	rec := Record{
		UUID:      *raw.UUID,
		Type:      *raw.Type,
		Timestamp: *raw.Timestamp,
		Body:      decodeBody(raw.Message),
	}
	if raw.ParentUUID != nil {
		rec.ParentUUID = *raw.ParentUUID
	}
	if raw.SessionID != nil {
		rec.SessionID = *raw.SessionID
	}
	return rec, nil
}

func decodeBody(message json.RawMessage) Body {
	if len(message) == 0 {
		return Body{}
	}
	var msg rawMessage
	if err := json.Unmarshal(message, &msg); err != nil || len(msg.Content) == 0 {
		return Body{}
	}

	var text string
	if err := json.Unmarshal(msg.Content, &text); err == nil {
		return Body{Kind: BodyPlainText, Text: text}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(msg.Content, &items); err != nil {
		return Body{}
	}
	blocks := make([]Block, len(items))
	for i, item := range items {
		blocks[i] = decodeBlock(item)
	}
	return Body{Kind: BodyBlocks, Blocks: blocks}
}

func decodeBlock(item json.RawMessage) Block {
	var b rawBlock
	if err := json.Unmarshal(item, &b); err != nil {
		return Block{Kind: BlockOther}
	}
	if b.Type == "image" {
		if b.Source == nil {
			return Block{Kind: BlockOther}
		}
		return Block{Kind: BlockImage, Data: b.Source.Data, MediaType: b.Source.MediaType}
	}
	if b.Text != nil {
		return Block{Kind: BlockText, Text: *b.Text}
	}
	return Block{Kind: BlockOther}
}

// Render produces the display text of a body. Image blocks become
// "[IMAGE:<index> size=<MB>MB]" placeholders; blocks without text are skipped.
func (b Body) Render() string {
	switch b.Kind {
	case BodyPlainText:
		return b.Text
	case BodyBlocks:
		pieces := make([]string, 0, len(b.Blocks))
		for i, block := range b.Blocks {
			switch block.Kind {
			case BlockText:
				pieces = append(pieces, block.Text)
			case BlockImage:
				pieces = append(pieces, imagePlaceholder(i, len(block.Data)))
			}
		}
		return strings.Join(pieces, "\n")
	default:
		return ""
	}
}

// Images lists the image blocks of a body.
func (b Body) Images() []ImageInfo {
	if b.Kind != BodyBlocks {
		return nil
	}
	var out []ImageInfo
	for i, block := range b.Blocks {
		if block.Kind == BlockImage {
			out = append(out, ImageInfo{Index: i, Size: len(block.Data)})
		}
	}
	return out
}

func imagePlaceholder(index, size int) string {
	return fmt.Sprintf("[IMAGE:%d size=%.1fMB]", index, float64(size)/1024/1024)
}
