// Package adjudicate submits correlated (email, transaction) pairs to a
// language model for fraud adjudication and validates the structured
// responses.
package adjudicate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rmartins/expense-audit/internal/correlate"
	"github.com/rmartins/expense-audit/internal/domain"
	"github.com/rmartins/expense-audit/internal/logger"
)

const (
	// maxConsecutiveErrors trips the circuit breaker: under a sustained
	// model outage the remaining batch is abandoned instead of retried.
	maxConsecutiveErrors = 5

	defaultCallTimeout = 60 * time.Second

	// interCallDelay spaces calls out per worker to keep rate-limit
	// pressure down.
	interCallDelay = 100 * time.Millisecond
)

// fallbackFraudType tags pairs emitted without model adjudication.
const fallbackFraudType = "CRUZAMENTO_SUSPEITO"

// BatchStats summarizes one adjudication batch.
type BatchStats struct {
	Candidates int  // pairs available before the cap
	Submitted  int  // pairs actually sent to the model
	Failed     int  // call or parse failures (excluded from findings)
	Accepted   int  // findings above the confidence threshold
	Aborted    bool // circuit breaker tripped before the batch finished
}

// Adjudicator runs LLM adjudication over candidate pairs with bounded
// concurrency and a shared circuit breaker. Construct it with New and inject
// the model client; it holds no global state.
type Adjudicator struct {
	client        ModelClient
	minConfidence int
	maxCalls      int
	workers       int
	callTimeout   time.Duration
}

// New creates an Adjudicator. maxCalls caps how many pairs are submitted
// (0 means no cap); workers bounds concurrent model calls.
func New(client ModelClient, minConfidence, maxCalls, workers int) *Adjudicator {
	if workers < 1 {
		workers = 1
	}
	return &Adjudicator{
		client:        client,
		minConfidence: minConfidence,
		maxCalls:      maxCalls,
		workers:       workers,
		callTimeout:   defaultCallTimeout,
	}
}

// AdjudicateAll submits the highest-scoring pairs to the model and returns
// the findings the model confirmed with sufficient confidence. Pairs beyond
// the call cap are silently never evaluated. Individual call or parse
// failures are converted to excluded zero-confidence results; five
// consecutive failures abort the remaining batch.
func (a *Adjudicator) AdjudicateAll(ctx context.Context, pairs []correlate.Pair) ([]domain.ContextualFinding, BatchStats) {
	log := logger.FromContext(ctx)
	stats := BatchStats{Candidates: len(pairs)}

	ordered := prioritize(pairs)
	if a.maxCalls > 0 && len(ordered) > a.maxCalls {
		log.Info().
			Int("candidates", len(ordered)).
			Int("cap", a.maxCalls).
			Msg("Capping adjudication batch; lower-score pairs will not be evaluated")
		ordered = ordered[:a.maxCalls]
	}
	stats.Submitted = len(ordered)

	results := make([]*domain.ContextualFinding, len(ordered))
	var failed int
	var mu sync.Mutex

	breaker := &circuitBreaker{threshold: maxConsecutiveErrors}
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if breaker.open() || ctx.Err() != nil {
					continue
				}

				finding, err := a.adjudicatePair(ctx, ordered[i])
				if err != nil {
					log.Warn().
						Err(err).
						Str("transaction_id", ordered[i].Tx.ID).
						Msg("Adjudication call failed; pair excluded")
					mu.Lock()
					failed++
					mu.Unlock()
					if breaker.failure() {
						log.Error().Msg("Too many consecutive model errors; aborting remaining batch")
					}
					continue
				}
				breaker.success()

				if finding != nil {
					mu.Lock()
					results[i] = finding
					mu.Unlock()
				}

				time.Sleep(interCallDelay)
			}
		}()
	}

	for i := range ordered {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	var findings []domain.ContextualFinding
	for _, f := range results {
		if f != nil {
			findings = append(findings, *f)
		}
	}

	stats.Failed = failed
	stats.Accepted = len(findings)
	stats.Aborted = breaker.open()
	return findings, stats
}

// adjudicatePair runs one model call with a per-call timeout. It returns
// (nil, nil) when the model answered but the verdict does not clear the
// acceptance bar.
func (a *Adjudicator) adjudicatePair(ctx context.Context, pair correlate.Pair) (*domain.ContextualFinding, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	raw, err := a.client.Generate(callCtx, systemPrompt, buildPairPrompt(pair))
	if err != nil {
		return nil, err
	}

	v, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	if !v.IsFraud || v.Confidence < a.minConfidence {
		return nil, nil
	}

	return findingFromPair(pair, v.FraudType, v.Confidence, v.Evidence, v.Justification), nil
}

// WithoutModel converts retained pairs directly into findings when LLM
// adjudication is disabled: the cross-match itself is the evidence and the
// confidence is ten times the match score.
func WithoutModel(pairs []correlate.Pair) []domain.ContextualFinding {
	findings := make([]domain.ContextualFinding, 0, len(pairs))
	for _, pair := range prioritize(pairs) {
		confidence := pair.Score * 10
		if confidence > 100 {
			confidence = 100
		}
		f := findingFromPair(pair, fallbackFraudType, confidence,
			joinReasons(pair), "Suspicious email linked to the transaction")
		findings = append(findings, *f)
	}
	return findings
}

func findingFromPair(pair correlate.Pair, fraudType string, confidence int, evidence, justification string) *domain.ContextualFinding {
	return &domain.ContextualFinding{
		TransactionID:   pair.Tx.ID,
		Date:            pair.Tx.Date,
		Employee:        pair.Tx.Employee,
		Role:            pair.Tx.Role,
		Description:     pair.Tx.Description,
		Amount:          pair.Tx.Amount,
		Category:        pair.Tx.Category,
		Vendor:          pair.Tx.Vendor,
		FraudType:       fraudType,
		Confidence:      confidence,
		Evidence:        evidence,
		Justification:   justification,
		EmailSender:     pair.Email.Email.Sender,
		EmailDate:       pair.Email.Email.Date,
		CrossMatchScore: pair.Score,
	}
}

func joinReasons(pair correlate.Pair) string {
	if len(pair.Reasons) == 0 {
		return ""
	}
	s := pair.Reasons[0]
	for _, r := range pair.Reasons[1:] {
		s += ", " + r
	}
	return s
}

// prioritize orders pairs by cross-match score descending so the cap always
// keeps the strongest candidates; transaction ID breaks ties
// deterministically.
func prioritize(pairs []correlate.Pair) []correlate.Pair {
	ordered := make([]correlate.Pair, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].Tx.ID < ordered[j].Tx.ID
	})
	return ordered
}

// circuitBreaker counts consecutive failures across workers and opens once
// the threshold is crossed. Successes reset the count.
type circuitBreaker struct {
	mu          sync.Mutex
	consecutive int
	threshold   int
	tripped     bool
}

// failure records a failed call and reports whether this one tripped the
// breaker.
func (b *circuitBreaker) failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.consecutive >= b.threshold && !b.tripped {
		b.tripped = true
		return true
	}
	return false
}

func (b *circuitBreaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
}

func (b *circuitBreaker) open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}
