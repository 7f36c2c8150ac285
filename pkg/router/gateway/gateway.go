package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"civic-chat-be/pkg/llm"
	"civic-chat-be/pkg/router"
)

// Gateway is the prompt-level contract between the router and the model.
// Every operation is a pure function of its inputs: same prompt, same
// parse rules, no hidden state.
type Gateway interface {
	PlanReuse(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (bool, error)
	ClassifyMode(ctx context.Context, question string, recent []router.Turn) (router.Mode, error)
	DraftSQL(ctx context.Context, question string, schema string, recent []router.Turn) (string, error)
	DraftSQLAnswer(ctx context.Context, question string, resultBlock string) (string, error)
	DraftRAGAnswer(ctx context.Context, question string, contextBlock string, recent []router.Turn) (string, error)
	MergeAnswers(ctx context.Context, question string, sqlAnswer string, ragAnswer string) (string, error)
	AnswerFromHistory(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (string, error)
}

// ModelContractError means the model broke an output schema twice in a row.
// The raw output is kept for the pipeline log, never for the user.
type ModelContractError struct {
	Op     string
	Output string
}

func (e *ModelContractError) Error() string {
	return fmt.Sprintf("model contract violated for %s: %q", e.Op, truncateForLog(e.Output, 120))
}

// Temperatures holds the per-operation sampling temperature. All values
// stay within [0.0, 0.3]; the decision ops sit at the deterministic end.
type Temperatures struct {
	PlanReuse    float64
	ClassifyMode float64
	DraftSQL     float64
	DraftAnswer  float64
	Merge        float64
}

func DefaultTemperatures() Temperatures {
	return Temperatures{
		PlanReuse:    0.0,
		ClassifyMode: 0.0,
		DraftSQL:     0.1,
		DraftAnswer:  0.2,
		Merge:        0.3,
	}
}

type LLMGateway struct {
	provider llm.LLMProvider
	temps    Temperatures
	logger   *log.Logger
}

var _ Gateway = &LLMGateway{}

func NewLLMGateway(provider llm.LLMProvider, temps Temperatures, logger *log.Logger) *LLMGateway {
	if logger == nil {
		logger = log.Default()
	}
	for _, t := range []*float64{&temps.PlanReuse, &temps.ClassifyMode, &temps.DraftSQL, &temps.DraftAnswer, &temps.Merge} {
		if *t < 0.0 {
			*t = 0.0
		} else if *t > 0.3 {
			*t = 0.3
		}
	}
	return &LLMGateway{
		provider: provider,
		temps:    temps,
		logger:   logger,
	}
}

// --- Closed-set token operations ---

const (
	tokenReuse   = "REUSE"
	tokenRefresh = "REFRESH"
)

var classifyTokens = map[string]router.Mode{
	"SQL":     router.ModeStructured,
	"RAG":     router.ModeUnstructured,
	"HYBRID":  router.ModeHybrid,
	"HISTORY": router.ModeHistory,
}

func (g *LLMGateway) PlanReuse(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (bool, error) {
	prompt := buildPlanReusePrompt(question, recent, digest)
	token, err := g.generateToken(ctx, "PlanReuse", prompt, g.temps.PlanReuse, []string{tokenReuse, tokenRefresh})
	if err != nil {
		return false, err
	}
	return token == tokenReuse, nil
}

func (g *LLMGateway) ClassifyMode(ctx context.Context, question string, recent []router.Turn) (router.Mode, error) {
	prompt := buildClassifyPrompt(question, recent)
	token, err := g.generateToken(ctx, "ClassifyMode", prompt, g.temps.ClassifyMode,
		[]string{"SQL", "RAG", "HYBRID", "HISTORY"})
	if err != nil {
		return "", err
	}
	return classifyTokens[token], nil
}

// generateToken runs a closed-set prompt, retrying once with a tightened
// reminder before giving up with a ModelContractError.
func (g *LLMGateway) generateToken(ctx context.Context, op, prompt string, temp float64, allowed []string) (string, error) {
	raw, err := g.provider.Generate(ctx, prompt, llm.WithTemperature(temp))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if token, ok := matchToken(raw, allowed); ok {
		return token, nil
	}

	g.logger.Printf("[GATEWAY] %s returned unparsable token %q, retrying", op, truncateForLog(raw, 80))
	reminder := prompt + fmt.Sprintf(
		"\n\nREMINDER: Reply with exactly one word from this list and nothing else: %s",
		strings.Join(allowed, ", "))
	raw, err = g.provider.Generate(ctx, reminder, llm.WithTemperature(temp))
	if err != nil {
		return "", fmt.Errorf("%s retry: %w", op, err)
	}
	if token, ok := matchToken(raw, allowed); ok {
		return token, nil
	}
	return "", &ModelContractError{Op: op, Output: raw}
}

// matchToken normalises a raw completion and checks it against the closed
// set. Fences, quotes and trailing punctuation are tolerated; extra prose
// is not.
func matchToken(raw string, allowed []string) (string, bool) {
	cleaned := stripFences(raw)
	cleaned = strings.Trim(cleaned, " \t\r\n\"'`.!")
	cleaned = strings.ToUpper(cleaned)
	for _, tok := range allowed {
		if cleaned == tok {
			return tok, true
		}
	}
	return "", false
}

// --- JSON-object operation ---

type sqlDraft struct {
	Sql string `json:"sql"`
}

func (g *LLMGateway) DraftSQL(ctx context.Context, question string, schema string, recent []router.Turn) (string, error) {
	prompt := buildDraftSQLPrompt(question, schema, recent)

	raw, err := g.provider.Generate(ctx, prompt, llm.WithTemperature(g.temps.DraftSQL))
	if err != nil {
		return "", fmt.Errorf("DraftSQL: %w", err)
	}
	if query, ok := parseSQLDraft(raw); ok {
		return query, nil
	}

	g.logger.Printf("[GATEWAY] DraftSQL returned unparsable output %q, retrying", truncateForLog(raw, 80))
	reminder := prompt + "\n\nREMINDER: Reply with a single JSON object of the form {\"sql\": \"SELECT ...\"} and nothing else."
	raw, err = g.provider.Generate(ctx, reminder, llm.WithTemperature(g.temps.DraftSQL))
	if err != nil {
		return "", fmt.Errorf("DraftSQL retry: %w", err)
	}
	if query, ok := parseSQLDraft(raw); ok {
		return query, nil
	}
	return "", &ModelContractError{Op: "DraftSQL", Output: raw}
}

func parseSQLDraft(raw string) (string, bool) {
	cleaned := stripFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", false
	}
	var draft sqlDraft
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &draft); err != nil {
		return "", false
	}
	query := strings.TrimSpace(draft.Sql)
	if query == "" {
		return "", false
	}
	return query, true
}

// --- Free-text operations ---

func (g *LLMGateway) DraftSQLAnswer(ctx context.Context, question string, resultBlock string) (string, error) {
	prompt := buildSQLAnswerPrompt(question, resultBlock)
	return g.generateText(ctx, "DraftSQLAnswer", prompt, g.temps.DraftAnswer)
}

func (g *LLMGateway) DraftRAGAnswer(ctx context.Context, question string, contextBlock string, recent []router.Turn) (string, error) {
	prompt := buildRAGAnswerPrompt(question, contextBlock, recent)
	return g.generateText(ctx, "DraftRAGAnswer", prompt, g.temps.DraftAnswer)
}

func (g *LLMGateway) MergeAnswers(ctx context.Context, question string, sqlAnswer string, ragAnswer string) (string, error) {
	prompt := buildMergePrompt(question, sqlAnswer, ragAnswer)
	return g.generateText(ctx, "MergeAnswers", prompt, g.temps.Merge)
}

func (g *LLMGateway) AnswerFromHistory(ctx context.Context, question string, recent []router.Turn, digest router.CacheDigest) (string, error) {
	prompt := buildHistoryAnswerPrompt(question, recent, digest)
	return g.generateText(ctx, "AnswerFromHistory", prompt, g.temps.DraftAnswer)
}

func (g *LLMGateway) generateText(ctx context.Context, op, prompt string, temp float64) (string, error) {
	raw, err := g.provider.Generate(ctx, prompt, llm.WithTemperature(temp))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	answer := strings.TrimSpace(stripFences(raw))
	if answer != "" {
		return answer, nil
	}

	g.logger.Printf("[GATEWAY] %s returned empty output, retrying", op)
	reminder := prompt + "\n\nREMINDER: Write the answer text directly. An empty reply is not acceptable."
	raw, err = g.provider.Generate(ctx, reminder, llm.WithTemperature(temp))
	if err != nil {
		return "", fmt.Errorf("%s retry: %w", op, err)
	}
	answer = strings.TrimSpace(stripFences(raw))
	if answer == "" {
		return "", &ModelContractError{Op: op, Output: raw}
	}
	return answer, nil
}

// --- Helpers ---

// stripFences drops a surrounding markdown code fence, with or without a
// language tag.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		// Language tags are single words like "json" or "sql"
		if firstLine != "" && !strings.ContainsAny(firstLine, " {}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateForLog(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
