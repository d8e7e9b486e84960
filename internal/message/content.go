package message

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is one element of a message body. Implementations are the
// tagged variants found in session logs: text, tool_use, tool_result,
// thinking, image, plus Unknown for anything else.
type ContentBlock interface {
	// BlockType returns the JSON "type" discriminator for this block.
	BlockType() string
}

// TextBlock is plain assistant or user text.
type TextBlock struct {
	Text string `json:"text"`
}

func (b *TextBlock) BlockType() string { return "text" }

// ToolUseBlock is a tool invocation issued by the assistant.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

func (b *ToolUseBlock) BlockType() string { return "tool_use" }

// ToolResultBlock carries the outcome of an earlier tool_use, matched by id.
// Dangling results (no matching tool_use in the thread) are kept and flagged
// by the parser rather than dropped.
type ToolResultBlock struct {
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`

	// Dangling is set during parsing when no earlier tool_use in the
	// session produced ToolUseID. Not part of the wire format.
	Dangling bool `json:"-"`
}

func (b *ToolResultBlock) BlockType() string { return "tool_result" }

// ContentText flattens the result content to text: a JSON string decodes
// directly, an array of blocks contributes its "text" fields, anything else
// returns the raw JSON.
func (b *ToolResultBlock) ContentText() string {
	if len(b.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Content, &s); err == nil {
		return s
	}
	var items []map[string]any
	if err := json.Unmarshal(b.Content, &items); err == nil {
		var out string
		for _, item := range items {
			if text, ok := item["text"].(string); ok {
				out += text
			}
		}
		return out
	}
	return string(b.Content)
}

// ThinkingBlock is opaque reasoning text from the assistant.
type ThinkingBlock struct {
	Thinking string `json:"thinking"`
}

func (b *ThinkingBlock) BlockType() string { return "thinking" }

// ImageBlock references image content by media type.
type ImageBlock struct {
	MediaType string          `json:"media_type"`
	Source    json.RawMessage `json:"source"`
}

func (b *ImageBlock) BlockType() string { return "image" }

// UnknownBlock preserves an unrecognized block verbatim so re-emission is
// lossless.
type UnknownBlock struct {
	Type string
	Raw  json.RawMessage
}

func (b *UnknownBlock) BlockType() string { return b.Type }

// DecodeContent normalizes a message content field into blocks. A bare JSON
// string becomes a single text block; an array is dispatched by each
// element's "type" discriminator.
func DecodeContent(raw json.RawMessage) ([]ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []ContentBlock{&TextBlock{Text: s}}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("content is neither string nor array: %w", err)
	}

	blocks := make([]ContentBlock, 0, len(elems))
	for i, elem := range elems {
		block, err := decodeBlock(elem)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func decodeBlock(raw json.RawMessage) (ContentBlock, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("missing type discriminator: %w", err)
	}

	switch probe.Type {
	case "text":
		var b TextBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case "tool_use":
		var b ToolUseBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case "tool_result":
		var b ToolResultBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case "thinking":
		var b ThinkingBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	case "image":
		var b ImageBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return &b, nil
	default:
		return &UnknownBlock{Type: probe.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// EncodeContent re-emits blocks as the JSON array form. Unknown blocks are
// written back byte-for-byte.
func EncodeContent(blocks []ContentBlock) (json.RawMessage, error) {
	elems := make([]json.RawMessage, 0, len(blocks))
	for _, block := range blocks {
		elem, err := encodeBlock(block)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	return json.Marshal(elems)
}

func encodeBlock(block ContentBlock) (json.RawMessage, error) {
	if u, ok := block.(*UnknownBlock); ok {
		return u.Raw, nil
	}

	body, err := json.Marshal(block)
	if err != nil {
		return nil, err
	}

	// Splice the discriminator into the marshalled object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	typeTag, _ := json.Marshal(block.BlockType())
	fields["type"] = typeTag
	return json.Marshal(fields)
}
