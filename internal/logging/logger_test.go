package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWithWriterFormats(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "debug", "json").Debug("hello", "k", "v")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" || line["k"] != "v" {
		t.Fatalf("unexpected record: %v", line)
	}

	buf.Reset()
	NewWithWriter(&buf, "bogus", "text").Debug("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered at default info level, got %q", buf.String())
	}
	NewWithWriter(&buf, "bogus", "TEXT").Info("kept")
	if !strings.Contains(buf.String(), "msg=kept") {
		t.Fatalf("expected text record, got %q", buf.String())
	}
}
