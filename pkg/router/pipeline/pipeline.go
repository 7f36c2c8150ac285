package pipeline

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"civic-chat-be/pkg/retrieval/structured"
	"civic-chat-be/pkg/router"
	"civic-chat-be/pkg/router/gateway"

	"golang.org/x/sync/errgroup"
)

// Collaborator contracts, kept narrow so turns can be driven by stubs.

type IStructuredRetriever interface {
	Retrieve(ctx context.Context, question string, recent []router.Turn) (*router.StructuredResult, error)
}

type IUnstructuredRetriever interface {
	Retrieve(ctx context.Context, question string, k int, recent []router.Turn) (*router.UnstructuredResult, error)
}

type IReuseJudge interface {
	ShouldReuse(ctx context.Context, question string, recent []router.Turn, entry *router.CacheEntry) router.ReuseVerdict
}

type IModeClassifier interface {
	Classify(ctx context.Context, question string, recent []router.Turn) router.RoutingPlan
}

type ISessionStore interface {
	Get(sessionID string) (*router.CacheEntry, bool)
	Put(sessionID string, update *router.CacheEntry)
}

type IKeywordHinter interface {
	KeywordHint(ctx context.Context, question string) []string
}

const (
	emptyQuestionReply    = "Please enter a question."
	retrievalFailureReply = "Unable to retrieve information at this time."
	defaultTurnDeadline   = 30 * time.Second
	defaultHistoryWindow  = 10
)

// Options tunes per-turn behavior.
type Options struct {
	TurnDeadline  time.Duration
	HistoryWindow int
}

// Pipeline runs one conversation turn end to end: reuse check, mode
// classification, retrieval, merge, source extraction, cache update.
type Pipeline struct {
	gateway      gateway.Gateway
	judge        IReuseJudge
	classifier   IModeClassifier
	structured   IStructuredRetriever
	unstructured IUnstructuredRetriever
	sessions     ISessionStore
	hinter       IKeywordHinter
	opts         Options
	logger       *log.Logger

	// Per-session serialisation: concurrent turns on one session run one
	// at a time, turns on different sessions run freely.
	sessionMu map[string]*sync.Mutex
	mapMu     sync.Mutex
}

func NewPipeline(
	gw gateway.Gateway,
	judge IReuseJudge,
	classifier IModeClassifier,
	structuredRetriever IStructuredRetriever,
	unstructuredRetriever IUnstructuredRetriever,
	sessions ISessionStore,
	hinter IKeywordHinter,
	opts Options,
	logger *log.Logger,
) *Pipeline {
	if opts.TurnDeadline <= 0 {
		opts.TurnDeadline = defaultTurnDeadline
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = defaultHistoryWindow
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		gateway:      gw,
		judge:        judge,
		classifier:   classifier,
		structured:   structuredRetriever,
		unstructured: unstructuredRetriever,
		sessions:     sessions,
		hinter:       hinter,
		opts:         opts,
		logger:       logger,
		sessionMu:    make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) lockSession(sessionID string) *sync.Mutex {
	p.mapMu.Lock()
	mu, ok := p.sessionMu[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		p.sessionMu[sessionID] = mu
	}
	p.mapMu.Unlock()
	mu.Lock()
	return mu
}

// HandleTurn answers one question for one session.
func (p *Pipeline) HandleTurn(ctx context.Context, sessionID, question string, history []router.Turn) (*router.ReplyEnvelope, error) {
	if strings.TrimSpace(question) == "" {
		return &router.ReplyEnvelope{
			Answer:  emptyQuestionReply,
			Sources: []router.SourceCitation{},
			Mode:    router.ModeHistory,
		}, nil
	}

	mu := p.lockSession(sessionID)
	defer mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.opts.TurnDeadline)
	defer cancel()

	recent := clampHistory(history, p.opts.HistoryWindow)

	entry, _ := p.sessions.Get(sessionID)

	verdict := p.judge.ShouldReuse(ctx, question, recent, entry)
	if verdict.Reuse {
		p.logger.Printf("[TURN] session=%s reuse (reason=%s)", sessionID, verdict.Reason)
		return p.answerFromHistory(ctx, sessionID, question, recent, entry)
	}
	p.logger.Printf("[TURN] session=%s refresh (reason=%s)", sessionID, verdict.Reason)

	plan := p.classifier.Classify(ctx, question, recent)
	mode := plan.Mode

	// History needs warm artifacts; a cold cache demotes to hybrid
	if mode == router.ModeHistory {
		if entry == nil || !entry.HasArtifacts() {
			p.logger.Printf("[TURN] session=%s history demoted to hybrid (cold cache)", sessionID)
			mode = router.ModeHybrid
		} else {
			return p.answerFromHistory(ctx, sessionID, question, recent, entry)
		}
	}

	switch mode {
	case router.ModeStructured:
		return p.runStructured(ctx, sessionID, question, recent)
	case router.ModeUnstructured:
		return p.runUnstructured(ctx, sessionID, question, recent)
	default:
		return p.runHybrid(ctx, sessionID, question, recent)
	}
}

// answerFromHistory serves a turn from the conversation and cached digest
// without new retrieval. Sources come from the cached artifacts.
func (p *Pipeline) answerFromHistory(ctx context.Context, sessionID, question string, recent []router.Turn, entry *router.CacheEntry) (*router.ReplyEnvelope, error) {
	digest := router.CacheDigest{}
	var sources []router.SourceCitation
	if entry != nil {
		digest = entry.Digest()
		sources = ExtractSources(entry.Structured, entry.Unstructured)
	} else {
		sources = []router.SourceCitation{}
	}

	answer, err := p.gateway.AnswerFromHistory(ctx, question, recent, digest)
	if err != nil {
		return p.failureEnvelope(ctx, sessionID, router.ModeHistory, err)
	}

	p.sessions.Put(sessionID, &router.CacheEntry{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
	})

	return &router.ReplyEnvelope{
		Answer:  answer,
		Sources: sources,
		Mode:    router.ModeHistory,
	}, nil
}

func (p *Pipeline) runStructured(ctx context.Context, sessionID, question string, recent []router.Turn) (*router.ReplyEnvelope, error) {
	result, err := p.structured.Retrieve(ctx, question, recent)
	if err != nil {
		// A schema miss means the question never belonged on the SQL
		// side; promote instead of failing.
		var sErr *structured.Error
		if errors.As(err, &sErr) && sErr.Kind == structured.KindSchemaMiss {
			p.logger.Printf("[TURN] session=%s schema miss, promoting to unstructured", sessionID)
			return p.runUnstructured(ctx, sessionID, question, recent)
		}
		return p.failureEnvelope(ctx, sessionID, router.ModeStructured, err)
	}

	p.sessions.Put(sessionID, &router.CacheEntry{
		SessionID:  sessionID,
		Question:   question,
		Answer:     result.AnswerFragment,
		Mode:       router.ModeStructured,
		Structured: result,
	})

	return &router.ReplyEnvelope{
		Answer:  result.AnswerFragment,
		Sources: ExtractSources(result, nil),
		Mode:    router.ModeStructured,
	}, nil
}

func (p *Pipeline) runUnstructured(ctx context.Context, sessionID, question string, recent []router.Turn) (*router.ReplyEnvelope, error) {
	result, err := p.unstructured.Retrieve(ctx, question, 0, recent)
	if err != nil {
		return p.failureEnvelope(ctx, sessionID, router.ModeUnstructured, err)
	}

	// An empty index result for a question with table vocabulary gets one
	// hybrid retry before settling for "no documents"
	if len(result.Chunks) == 0 && len(p.hinter.KeywordHint(ctx, question)) > 0 {
		p.logger.Printf("[TURN] session=%s empty chunks with table hints, retrying hybrid", sessionID)
		return p.runHybrid(ctx, sessionID, question, recent)
	}

	p.sessions.Put(sessionID, &router.CacheEntry{
		SessionID:    sessionID,
		Question:     question,
		Answer:       result.AnswerFragment,
		Mode:         router.ModeUnstructured,
		Unstructured: result,
	})

	return &router.ReplyEnvelope{
		Answer:  result.AnswerFragment,
		Sources: ExtractSources(nil, result),
		Mode:    router.ModeUnstructured,
	}, nil
}

func (p *Pipeline) runHybrid(ctx context.Context, sessionID, question string, recent []router.Turn) (*router.ReplyEnvelope, error) {
	var sqlResult *router.StructuredResult
	var ragResult *router.UnstructuredResult
	var sqlErr, ragErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sqlResult, sqlErr = p.structured.Retrieve(gctx, question, recent)
		return nil
	})
	g.Go(func() error {
		ragResult, ragErr = p.unstructured.Retrieve(gctx, question, 0, recent)
		return nil
	})
	_ = g.Wait()

	// Contract and guard violations end the turn even when the other side
	// survived
	if fatal := firstFatal(sqlErr, ragErr); fatal != nil {
		return p.failureEnvelope(ctx, sessionID, router.ModeHybrid, fatal)
	}

	switch {
	case sqlErr != nil && ragErr != nil:
		return p.failureEnvelope(ctx, sessionID, router.ModeHybrid, errors.Join(sqlErr, ragErr))

	case sqlErr != nil:
		// Structured side lost; report the surviving mode
		p.logger.Printf("[TURN] session=%s hybrid degraded to unstructured: %v", sessionID, sqlErr)
		if !turnCancelled(ctx, sqlErr) {
			p.sessions.Put(sessionID, &router.CacheEntry{
				SessionID:    sessionID,
				Question:     question,
				Answer:       ragResult.AnswerFragment,
				Mode:         router.ModeUnstructured,
				Unstructured: ragResult,
			})
		}
		return &router.ReplyEnvelope{
			Answer:  ragResult.AnswerFragment,
			Sources: ExtractSources(nil, ragResult),
			Mode:    router.ModeUnstructured,
		}, nil

	case ragErr != nil:
		p.logger.Printf("[TURN] session=%s hybrid degraded to structured: %v", sessionID, ragErr)
		if !turnCancelled(ctx, ragErr) {
			p.sessions.Put(sessionID, &router.CacheEntry{
				SessionID:  sessionID,
				Question:   question,
				Answer:     sqlResult.AnswerFragment,
				Mode:       router.ModeStructured,
				Structured: sqlResult,
			})
		}
		return &router.ReplyEnvelope{
			Answer:  sqlResult.AnswerFragment,
			Sources: ExtractSources(sqlResult, nil),
			Mode:    router.ModeStructured,
		}, nil
	}

	answer, err := p.gateway.MergeAnswers(ctx, question, sqlResult.AnswerFragment, ragResult.AnswerFragment)
	if err != nil {
		return p.failureEnvelope(ctx, sessionID, router.ModeHybrid, err)
	}

	p.sessions.Put(sessionID, &router.CacheEntry{
		SessionID:    sessionID,
		Question:     question,
		Answer:       answer,
		Mode:         router.ModeHybrid,
		Structured:   sqlResult,
		Unstructured: ragResult,
	})

	return &router.ReplyEnvelope{
		Answer:  answer,
		Sources: ExtractSources(sqlResult, ragResult),
		Mode:    router.ModeHybrid,
	}, nil
}

// failureEnvelope produces the uniform retrieval-failure reply. The cache
// is left untouched: a failed turn must not displace good artifacts.
func (p *Pipeline) failureEnvelope(ctx context.Context, sessionID string, mode router.Mode, err error) (*router.ReplyEnvelope, error) {
	p.logger.Printf("[TURN] session=%s mode=%s failed: %v", sessionID, mode, err)
	return &router.ReplyEnvelope{
		Answer:  retrievalFailureReply,
		Sources: []router.SourceCitation{},
		Mode:    mode,
	}, nil
}

// firstFatal picks out errors that must end the turn regardless of what
// the other side produced.
func firstFatal(errs ...error) error {
	for _, err := range errs {
		if err == nil {
			continue
		}
		var contractErr *gateway.ModelContractError
		if errors.As(err, &contractErr) {
			return err
		}
		var sErr *structured.Error
		if errors.As(err, &sErr) && sErr.Kind == structured.KindNonReadOnlyQuery {
			return err
		}
	}
	return nil
}

// turnCancelled reports whether the turn deadline fired or the caller
// cancelled. A cancelled turn must leave the prior cache entry intact,
// even when one retriever finished before the deadline.
func turnCancelled(ctx context.Context, errs ...error) bool {
	if ctx.Err() != nil {
		return true
	}
	for _, err := range errs {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return true
		}
	}
	return false
}

func clampHistory(history []router.Turn, window int) []router.Turn {
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
