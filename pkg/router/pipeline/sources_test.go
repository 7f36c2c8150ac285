package pipeline

import (
	"testing"

	"civic-chat-be/pkg/router"
)

func TestExtractSources(t *testing.T) {
	structured := &router.StructuredResult{
		Tables: []string{"weekly_events", "service_requests", "weekly_events"},
	}
	unstructured := &router.UnstructuredResult{
		Chunks: []router.Chunk{
			{Source: "meeting_minutes.pdf", DocType: "minutes"},
			{Source: "meeting_minutes.pdf", DocType: "minutes"},
			{Source: "survey_2024.pdf", DocType: "survey"},
		},
	}

	sources := ExtractSources(structured, unstructured)

	if len(sources) != 4 {
		t.Fatalf("got %d sources, want 4", len(sources))
	}

	want := []router.SourceCitation{
		{Type: "sql", Table: "weekly_events"},
		{Type: "sql", Table: "service_requests"},
		{Type: "rag", Source: "meeting_minutes.pdf", DocType: "minutes"},
		{Type: "rag", Source: "survey_2024.pdf", DocType: "survey"},
	}
	for i, w := range want {
		if sources[i] != w {
			t.Errorf("sources[%d] = %+v, want %+v", i, sources[i], w)
		}
	}
}

func TestExtractSourcesNilInputs(t *testing.T) {
	sources := ExtractSources(nil, nil)
	if sources == nil {
		t.Fatal("sources should never be nil")
	}
	if len(sources) != 0 {
		t.Fatalf("got %d sources, want 0", len(sources))
	}
}

func TestExtractSourcesSameSourceDifferentDocType(t *testing.T) {
	unstructured := &router.UnstructuredResult{
		Chunks: []router.Chunk{
			{Source: "porch_report.pdf", DocType: "report"},
			{Source: "porch_report.pdf", DocType: "appendix"},
		},
	}

	sources := ExtractSources(nil, unstructured)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2 distinct doc types", len(sources))
	}
}
