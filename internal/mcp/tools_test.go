package mcp

import (
	"strings"
	"testing"
)

func TestToolNames_NoSuffix(t *testing.T) {
	names := toolNames("")
	for _, base := range []string{"search_documents", "count_documents", "list_documents"} {
		if names[base] != base {
			t.Errorf("%s: got %s", base, names[base])
		}
	}
}

func TestToolNames_WithSuffix(t *testing.T) {
	names := toolNames("notes")
	if names["search_documents"] != "search_documents_notes" {
		t.Errorf("got %s", names["search_documents"])
	}
	if names["count_documents"] != "count_documents_notes" {
		t.Errorf("got %s", names["count_documents"])
	}
	if names["list_documents"] != "list_documents_notes" {
		t.Errorf("got %s", names["list_documents"])
	}
}

func TestSnippet(t *testing.T) {
	got := snippet("line one\nline two\n\nline three")
	if got != "line one line two line three" {
		t.Errorf("got %q", got)
	}

	long := strings.Repeat("word ", 200)
	got = snippet(long)
	if len(got) > snippetLength+3 {
		t.Errorf("snippet too long: %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("long snippet should be marked truncated")
	}
}

func TestSnippet_Short(t *testing.T) {
	if got := snippet("short"); got != "short" {
		t.Errorf("got %q", got)
	}
}
