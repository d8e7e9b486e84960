package message

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecodeContentBareString(t *testing.T) {
	blocks, err := DecodeContent(json.RawMessage(`"hello world"`))
	if err != nil {
		t.Fatalf("DecodeContent failed: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	text, ok := blocks[0].(*TextBlock)
	if !ok {
		t.Fatalf("expected TextBlock, got %T", blocks[0])
	}
	if text.Text != "hello world" {
		t.Errorf("text: got %q, want %q", text.Text, "hello world")
	}
}

func TestDecodeContentDispatchesVariants(t *testing.T) {
	raw := json.RawMessage(`[
		{"type":"text","text":"hi"},
		{"type":"tool_use","id":"t1","name":"Bash","input":{"cmd":"ls"}},
		{"type":"tool_result","tool_use_id":"t1","content":"ok","is_error":false},
		{"type":"thinking","thinking":"hmm"},
		{"type":"image","media_type":"image/png","source":{"data":"x"}}
	]`)

	blocks, err := DecodeContent(raw)
	if err != nil {
		t.Fatalf("DecodeContent failed: %v", err)
	}
	if len(blocks) != 5 {
		t.Fatalf("expected 5 blocks, got %d", len(blocks))
	}

	wantTypes := []string{"text", "tool_use", "tool_result", "thinking", "image"}
	for i, want := range wantTypes {
		if got := blocks[i].BlockType(); got != want {
			t.Errorf("block %d: got type %q, want %q", i, got, want)
		}
	}

	tu, ok := blocks[1].(*ToolUseBlock)
	if !ok {
		t.Fatalf("block 1: expected ToolUseBlock, got %T", blocks[1])
	}
	if tu.ID != "t1" || tu.Name != "Bash" {
		t.Errorf("tool_use: got id=%q name=%q", tu.ID, tu.Name)
	}

	tr, ok := blocks[2].(*ToolResultBlock)
	if !ok {
		t.Fatalf("block 2: expected ToolResultBlock, got %T", blocks[2])
	}
	if tr.ToolUseID != "t1" || tr.IsError {
		t.Errorf("tool_result: got id=%q is_error=%v", tr.ToolUseID, tr.IsError)
	}
}

func TestDecodeContentPreservesUnknownBlocks(t *testing.T) {
	raw := json.RawMessage(`[{"type":"server_tool_use","weird":{"nested":[1,2,3]}}]`)

	blocks, err := DecodeContent(raw)
	if err != nil {
		t.Fatalf("DecodeContent failed: %v", err)
	}
	unknown, ok := blocks[0].(*UnknownBlock)
	if !ok {
		t.Fatalf("expected UnknownBlock, got %T", blocks[0])
	}
	if unknown.Type != "server_tool_use" {
		t.Errorf("type: got %q", unknown.Type)
	}

	// Round trip must be byte-identical for unknown blocks.
	encoded, err := EncodeContent(blocks)
	if err != nil {
		t.Fatalf("EncodeContent failed: %v", err)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(encoded, &elems); err != nil {
		t.Fatalf("re-decoding encoded content: %v", err)
	}
	if !bytes.Equal(elems[0], []byte(`{"type":"server_tool_use","weird":{"nested":[1,2,3]}}`)) {
		t.Errorf("unknown block not preserved: %s", elems[0])
	}
}

func TestEncodeContentRoundTrip(t *testing.T) {
	raw := json.RawMessage(`[
		{"type":"text","text":"hi"},
		{"type":"tool_use","id":"t1","name":"Bash","input":{"cmd":"ls"}}
	]`)
	blocks, err := DecodeContent(raw)
	if err != nil {
		t.Fatalf("DecodeContent failed: %v", err)
	}
	encoded, err := EncodeContent(blocks)
	if err != nil {
		t.Fatalf("EncodeContent failed: %v", err)
	}
	again, err := DecodeContent(encoded)
	if err != nil {
		t.Fatalf("re-decode failed: %v", err)
	}
	if len(again) != len(blocks) {
		t.Fatalf("round trip changed block count: %d != %d", len(again), len(blocks))
	}
	for i := range blocks {
		if again[i].BlockType() != blocks[i].BlockType() {
			t.Errorf("block %d: type changed from %q to %q", i, blocks[i].BlockType(), again[i].BlockType())
		}
	}
}

func TestToolResultContentText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"string", `"plain output"`, "plain output"},
		{"blocks", `[{"type":"text","text":"part1"},{"type":"text","text":"part2"}]`, "part1part2"},
		{"object", `{"k":1}`, `{"k":1}`},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &ToolResultBlock{Content: json.RawMessage(tt.content)}
			if got := b.ContentText(); got != tt.want {
				t.Errorf("ContentText: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordTextAndTools(t *testing.T) {
	rec := &Record{
		Role: RoleAssistant,
		Content: []ContentBlock{
			&TextBlock{Text: "first"},
			&ToolUseBlock{ID: "t1", Name: "Bash"},
			&TextBlock{Text: "second"},
		},
	}
	if got := rec.Text(); got != "first\nsecond" {
		t.Errorf("Text: got %q", got)
	}
	tools := rec.Tools()
	if len(tools) != 1 || tools[0] != "Bash" {
		t.Errorf("Tools: got %v", tools)
	}
	if !rec.HasToolUse() {
		t.Error("HasToolUse: got false")
	}
}

func TestToolOnlyRecordHasEmptyText(t *testing.T) {
	rec := &Record{
		Role:    RoleAssistant,
		Content: []ContentBlock{&ToolUseBlock{ID: "t1", Name: "Bash"}},
	}
	if got := rec.Text(); got != "" {
		t.Errorf("tool-only record text: got %q, want empty", got)
	}
}
