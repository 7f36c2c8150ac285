package metadata

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestKeywordHint(t *testing.T) {
	p := NewCatalogProvider(nil, nil, 0)
	ctx := context.Background()

	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{"event vocabulary", "What events are coming up this weekend?", []string{"weekly_events"}},
		{"crime vocabulary", "Any crime near Fields Corner?", []string{"incident_reports"}},
		{"311 number", "How do I file a 311 request?", []string{"service_requests"}},
		{"pothole", "Who fixes potholes around here?", nil},
		{"pothole singular", "Is the pothole on my street logged?", []string{"service_requests"}},
		{"table name verbatim", "Show me weekly_events rows", []string{"weekly_events"}},
		{"mixed vocabulary", "Was there an incident at the community meeting?", []string{"incident_reports", "weekly_events"}},
		{"duplicate words collapse", "events, events, and more events", []string{"weekly_events"}},
		{"case insensitive", "ANY CRIME LATELY?", []string{"incident_reports"}},
		{"punctuation split", "crime/safety concerns?", []string{"incident_reports"}},
		{"no civic vocabulary", "What is the meaning of life?", nil},
		{"empty question", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.KeywordHint(ctx, tt.question)
			if len(got) != len(tt.want) {
				t.Fatalf("KeywordHint(%q) = %v, want %v", tt.question, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("KeywordHint(%q)[%d] = %q, want %q", tt.question, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSchemaPromptRendersCatalog(t *testing.T) {
	p := &catalogProvider{
		cached: []TableInfo{
			{
				Name:        "weekly_events",
				Description: "Upcoming community events",
				Columns: []ColumnInfo{
					{Name: "event_name", Type: "text", Description: "Event title"},
					{Name: "start_date", Type: "date"},
				},
			},
		},
		cachedAt: time.Now(),
		cacheTTL: time.Minute,
	}

	prompt, err := p.SchemaPrompt(context.Background())
	if err != nil {
		t.Fatalf("SchemaPrompt() error = %v", err)
	}

	for _, want := range []string{
		"Table weekly_events - Upcoming community events",
		"event_name text  -- Event title",
		"start_date date",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("SchemaPrompt() missing %q in:\n%s", want, prompt)
		}
	}
}
