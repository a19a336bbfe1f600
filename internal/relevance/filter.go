// internal/relevance/filter.go
package relevance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrTransient marks judge failures caused by transient server
// conditions (rate limits, timeouts). They halve the working
// concurrency; everything else is treated as a judgment problem.
var ErrTransient = errors.New("transient judge failure")

// ErrBadJudgment marks malformed judge output. Retried a bounded number
// of times without touching concurrency.
var ErrBadJudgment = errors.New("malformed judge output")

// Candidate is one item submitted for relevance judgment.
type Candidate struct {
	Identifier string
	Name       string
	Category   string
}

// Judgment is the judge's verdict for a single candidate.
type Judgment struct {
	Relevant bool
	Reason   string
}

// Judge is the external relevance oracle. Implementations must tolerate
// concurrent invocation up to the filter's concurrency ceiling.
type Judge interface {
	JudgeItem(ctx context.Context, keyword string, candidate Candidate) (Judgment, error)
	JudgeCategories(ctx context.Context, keyword string, categories []string) ([]string, error)
}

type Config struct {
	ConcurrencyFloor int
	ConcurrencyCeil  int
	ConcurrencyStep  int
	StreakTarget     int
	MaxParseRetries  int
	CategoryLimit    int
}

// Result summarizes one batch-filter invocation. When the batch stopped
// early, Validated is a lower bound on the batch size, not its length.
type Result struct {
	Relevant         []Candidate
	Validated        int
	Failed           int
	EarlyStopped     bool
	FinalConcurrency int
}

// Filter runs concurrency-bounded relevance judgments, tuning its own
// parallelism from observed success and failure.
type Filter struct {
	judge  Judge
	logger *logrus.Logger
	cfg    Config
}

func NewFilter(judge Judge, logger *logrus.Logger, cfg Config) *Filter {
	if cfg.ConcurrencyFloor < 1 {
		cfg.ConcurrencyFloor = 1
	}
	if cfg.ConcurrencyCeil < cfg.ConcurrencyFloor {
		cfg.ConcurrencyCeil = cfg.ConcurrencyFloor
	}
	if cfg.ConcurrencyStep < 1 {
		cfg.ConcurrencyStep = 1
	}
	if cfg.StreakTarget < 1 {
		cfg.StreakTarget = 1
	}
	if cfg.CategoryLimit < 1 {
		cfg.CategoryLimit = 30
	}
	return &Filter{judge: judge, logger: logger, cfg: cfg}
}

// FilterItems judges every candidate and returns the relevant subset.
// Once maxResults relevant candidates are collected the batch stops
// early and in-flight judgments are cancelled. Concurrency always
// starts back at the floor; batches carry no memory of each other.
func (f *Filter) FilterItems(ctx context.Context, keyword string, candidates []Candidate, maxResults int) (*Result, error) {
	if f.judge == nil {
		return nil, fmt.Errorf("no relevance judge registered")
	}

	sem := newAdaptiveSemaphore(f.cfg.ConcurrencyFloor, f.cfg.ConcurrencyCeil, f.cfg.ConcurrencyStep, f.cfg.StreakTarget)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result Result
	)

	for _, candidate := range candidates {
		if err := sem.Acquire(ctx); err != nil {
			break
		}

		wg.Add(1)
		go func(candidate Candidate) {
			defer wg.Done()
			defer sem.Release()

			judgment, err := f.judgeWithRetry(ctx, sem, keyword, candidate)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if ctx.Err() == nil {
					result.Failed++
				}
				return
			}

			result.Validated++
			if !judgment.Relevant {
				return
			}
			result.Relevant = append(result.Relevant, candidate)
			if maxResults > 0 && len(result.Relevant) >= maxResults && !result.EarlyStopped {
				result.EarlyStopped = true
				cancel()
			}
		}(candidate)
	}

	wg.Wait()

	result.FinalConcurrency = sem.Capacity()
	f.logger.WithFields(logrus.Fields{
		"keyword":           keyword,
		"candidates":        len(candidates),
		"validated":         result.Validated,
		"relevant":          len(result.Relevant),
		"failed":            result.Failed,
		"early_stopped":     result.EarlyStopped,
		"final_concurrency": result.FinalConcurrency,
	}).Info("Relevance batch finished")

	return &result, nil
}

func (f *Filter) judgeWithRetry(ctx context.Context, sem *adaptiveSemaphore, keyword string, candidate Candidate) (Judgment, error) {
	var lastErr error
	for attempt := 0; attempt <= f.cfg.MaxParseRetries; attempt++ {
		if ctx.Err() != nil {
			return Judgment{}, ctx.Err()
		}

		judgment, err := f.judge.JudgeItem(ctx, keyword, candidate)
		if err == nil {
			sem.OnSuccess()
			return judgment, nil
		}
		lastErr = err

		if errors.Is(err, ErrTransient) {
			sem.OnTransientFailure()
			f.logger.WithFields(logrus.Fields{
				"identifier":  candidate.Identifier,
				"concurrency": sem.Capacity(),
			}).Warn("Transient judge failure, concurrency halved")
			return Judgment{}, err
		}

		if !errors.Is(err, ErrBadJudgment) {
			return Judgment{}, err
		}
		// Malformed output: retry without touching concurrency.
	}
	return Judgment{}, fmt.Errorf("judge output unusable after %d retries: %w", f.cfg.MaxParseRetries, lastErr)
}

// FilterCategories asks the judge which category names match the search
// intent, in a single batched call capped at CategoryLimit names with
// "Other" excluded. Any failure falls back to the original list.
func (f *Filter) FilterCategories(ctx context.Context, keyword string, categories []string) []string {
	if f.judge == nil {
		return categories
	}

	candidates := make([]string, 0, len(categories))
	for _, category := range categories {
		if category == "Other" {
			continue
		}
		candidates = append(candidates, category)
		if len(candidates) >= f.cfg.CategoryLimit {
			break
		}
	}
	if len(candidates) == 0 {
		return categories
	}

	relevant, err := f.judge.JudgeCategories(ctx, keyword, candidates)
	if err != nil {
		f.logger.WithError(err).Warn("Category judgment failed, keeping original categories")
		return categories
	}

	f.logger.WithFields(logrus.Fields{
		"keyword":  keyword,
		"judged":   len(candidates),
		"relevant": len(relevant),
	}).Info("Category pre-filter applied")
	return relevant
}
