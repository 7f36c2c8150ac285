package router

import (
	"time"
)

// Mode is the retrieval strategy chosen for a turn.
type Mode string

const (
	ModeStructured   Mode = "structured"
	ModeUnstructured Mode = "unstructured"
	ModeHybrid       Mode = "hybrid"
	ModeHistory      Mode = "history"
)

// Turn is one prior exchange in the conversation window.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RoutingPlan is the classifier's decision for a question.
type RoutingPlan struct {
	Mode Mode
}

// ReuseReason explains the judge's verdict: follow_up for a reuse, the
// others for a refresh.
type ReuseReason string

const (
	ReasonFollowUp      ReuseReason = "follow_up"
	ReasonNoHistory     ReuseReason = "no_history"
	ReasonTemporalShift ReuseReason = "temporal_shift"
	ReasonParseFallback ReuseReason = "parse_fallback"
	ReasonModelJudged   ReuseReason = "model_judged"
)

// ReuseVerdict is the judge's answer to "can cached artifacts serve this turn".
type ReuseVerdict struct {
	Reuse  bool
	Reason ReuseReason
}

// StructuredResult carries everything the SQL side produced for one turn.
type StructuredResult struct {
	Columns        []string
	Rows           [][]any
	Tables         []string
	Query          string
	Truncated      bool
	AnswerFragment string
}

// Chunk is one retrieved document passage with its cosine distance.
type Chunk struct {
	Text     string
	Source   string
	DocType  string
	Distance float64
}

// UnstructuredResult carries everything the RAG side produced for one turn.
type UnstructuredResult struct {
	Chunks         []Chunk
	AnswerFragment string
}

// SourceCitation is one entry in a reply's sources list. Type is "sql" or
// "rag"; Table is set for sql citations, Source/DocType for rag ones.
type SourceCitation struct {
	Type    string `json:"type"`
	Table   string `json:"table,omitempty"`
	Source  string `json:"source,omitempty"`
	DocType string `json:"doc_type,omitempty"`
}

// CacheEntry is the per-session retrieval state kept between turns.
// Structured and Unstructured are nil until the matching side has run.
type CacheEntry struct {
	SessionID     string
	Question      string
	Answer        string
	Mode          Mode
	Structured    *StructuredResult
	Unstructured  *UnstructuredResult
	LastTouchedAt time.Time
}

// Digest compacts the entry into the bounded summary the reuse judge shows
// the model. Row and chunk payloads never cross into prompts, only counts
// and identifiers.
func (e *CacheEntry) Digest() CacheDigest {
	d := CacheDigest{
		Question: e.Question,
		Answer:   e.Answer,
		Mode:     e.Mode,
	}
	if e.Structured != nil {
		d.Tables = append(d.Tables, e.Structured.Tables...)
		d.RowCount = len(e.Structured.Rows)
		d.HasStructured = true
	}
	if e.Unstructured != nil {
		for _, c := range e.Unstructured.Chunks {
			d.Sources = append(d.Sources, c.Source)
		}
		d.ChunkCount = len(e.Unstructured.Chunks)
		d.HasUnstructured = true
	}
	return d
}

// HasArtifacts reports whether any retrieval side is populated.
func (e *CacheEntry) HasArtifacts() bool {
	return e.Structured != nil || e.Unstructured != nil
}

// CacheDigest is the compact cached-state summary used in reuse prompts.
type CacheDigest struct {
	Question        string
	Answer          string
	Mode            Mode
	Tables          []string
	Sources         []string
	RowCount        int
	ChunkCount      int
	HasStructured   bool
	HasUnstructured bool
}

// ReplyEnvelope is the pipeline's final product for one turn.
type ReplyEnvelope struct {
	Answer  string
	Sources []SourceCitation
	Mode    Mode
}
