package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vampirenirmal/codeorc/internal/core"
	domain "github.com/vampirenirmal/codeorc/internal/domain/analysis"
)

// ErrEmptySource is returned when there is no content to analyze.
var ErrEmptySource = errors.New("analysis source is empty")

const (
	defaultTTL             = 10 * time.Minute
	defaultAnalyzerTimeout = 30 * time.Second
	defaultConcurrency     = 4
	defaultCacheEntries    = 256
)

// Aggregator runs the analyzer ports over a source and merges their sections.
// Results are cached per fingerprint and concurrent requests for the same
// fingerprint share one computation.
type Aggregator struct {
	ports           Ports
	cache           *Cache
	store           *ReportStore
	flight          singleflight.Group
	logger          *slog.Logger
	clock           core.Clock
	ttl             time.Duration
	analyzerTimeout time.Duration
	concurrency     int
	weights         QualityWeights
	severities      SeverityWeights
}

type AggregatorOption func(*Aggregator)

// WithTTL sets how long a computed result stays valid.
func WithTTL(ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithAnalyzerTimeout bounds each analyzer call.
func WithAnalyzerTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.analyzerTimeout = d
		}
	}
}

// WithConcurrency limits how many analyzers run at once.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithQualityWeights(w QualityWeights) AggregatorOption {
	return func(a *Aggregator) {
		a.weights = w
	}
}

func WithSeverityWeights(w SeverityWeights) AggregatorOption {
	return func(a *Aggregator) {
		if len(w) > 0 {
			a.severities = w
		}
	}
}

// WithCache replaces the default in-memory cache.
func WithCache(c *Cache) AggregatorOption {
	return func(a *Aggregator) {
		if c != nil {
			a.cache = c
		}
	}
}

// WithReportStore persists results and consults stored results on a cache miss.
func WithReportStore(s *ReportStore) AggregatorOption {
	return func(a *Aggregator) {
		a.store = s
	}
}

func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithAggregatorClock(clock core.Clock) AggregatorOption {
	return func(a *Aggregator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

func NewAggregator(ports Ports, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		ports:           ports,
		logger:          slog.Default().With("component", "analysis"),
		clock:           time.Now,
		ttl:             defaultTTL,
		analyzerTimeout: defaultAnalyzerTimeout,
		concurrency:     defaultConcurrency,
		weights:         DefaultQualityWeights(),
		severities:      DefaultSeverityWeights(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = NewCache(defaultCacheEntries, a.clock)
	}
	return a
}

// Cache exposes the result cache, mainly for janitor control and stats.
func (a *Aggregator) Cache() *Cache {
	return a.cache
}

// Analyze returns the merged report for src. Analyzer failures never surface
// here: they degrade their section and add a diagnostic. The only errors are
// ErrEmptySource and the caller's own cancellation.
//
// A caller whose ctx is cancelled stops waiting, but a computation it started
// keeps running for any other caller waiting on the same fingerprint.
func (a *Aggregator) Analyze(ctx context.Context, src Source) (*domain.AnalysisResult, error) {
	if src.Empty() {
		return nil, ErrEmptySource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp := src.Key()
	if r, ok := a.cache.Get(fp); ok {
		a.logger.Debug("analysis cache hit", "fingerprint", fp)
		return &r, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := a.flight.DoChan(fp, func() (any, error) {
		return a.compute(shared, fp, src.clone())
	})

	select {
	case <-ctx.Done():
		a.logger.Debug("analysis caller detached", "fingerprint", fp)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		r := res.Val.(domain.AnalysisResult).Clone()
		if res.Shared {
			a.logger.Debug("analysis coalesced", "fingerprint", fp)
		}
		return &r, nil
	}
}

func (a *Aggregator) compute(ctx context.Context, fp string, src Source) (domain.AnalysisResult, error) {
	// A computation for fp may have finished between the caller's cache
	// check and this flight starting.
	if r, ok := a.cache.Get(fp); ok {
		return r, nil
	}

	if a.store != nil {
		entry, err := a.store.Load(ctx, fp)
		if err == nil && entry.ValidAt(a.clock()) {
			a.cache.Restore(fp, entry)
			a.logger.Debug("analysis restored from store", "fingerprint", fp)
			return entry.Result, nil
		}
	}

	start := a.clock()
	result := a.run(ctx, fp, src)

	if !a.cache.Put(fp, result, a.ttl) {
		// The newer entry owns both the cache and the store.
		a.logger.Debug("kept newer cached analysis", "fingerprint", fp)
	} else if a.store != nil {
		now := a.clock()
		entry := domain.CachedAnalysis{Result: result, Timestamp: now, ExpiresAt: now.Add(a.ttl)}
		if err := a.store.Save(ctx, fp, entry); err != nil {
			a.logger.Warn("persisting analysis failed", "fingerprint", fp, "error", err)
		}
	}

	a.logger.Info("analysis computed",
		"fingerprint", fp,
		"files", len(src.Files),
		"diagnostics", len(result.Diagnostics),
		"duration", a.clock().Sub(start))
	return result, nil
}

// run fans out to every configured port and merges the sections.
func (a *Aggregator) run(ctx context.Context, fp string, src Source) domain.AnalysisResult {
	var (
		semantic      domain.SemanticAnalysis
		contextual    domain.ContextAnalysis
		graph         domain.DependencyGraphResult
		performance   domain.PerformanceMetrics
		security      domain.SecurityReport
		accessibility domain.AccessibilityReport

		semanticOK, securityOK bool
	)
	rec := &recorder{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	if p := a.ports.Code; p != nil {
		g.Go(func() error {
			semantic, semanticOK = runPort(gctx, a, rec, domain.SectionSemantic, p, p.Analyze, src.clone())
			return nil
		})
	}
	if p := a.ports.Context; p != nil {
		g.Go(func() error {
			contextual, _ = runPort(gctx, a, rec, domain.SectionContext, p, p.Analyze, src.clone())
			return nil
		})
	}
	if p := a.ports.Graph; p != nil {
		g.Go(func() error {
			graph, _ = runPort(gctx, a, rec, domain.SectionGraph, p, p.Analyze, src.clone())
			return nil
		})
	}
	if p := a.ports.Performance; p != nil {
		g.Go(func() error {
			performance, _ = runPort(gctx, a, rec, domain.SectionPerformance, p, p.Analyze, src.clone())
			return nil
		})
	}
	if p := a.ports.Security; p != nil {
		g.Go(func() error {
			security, securityOK = runPort(gctx, a, rec, domain.SectionSecurity, p, p.Analyze, src.clone())
			return nil
		})
	}
	if p := a.ports.Accessibility; p != nil {
		g.Go(func() error {
			accessibility, _ = runPort(gctx, a, rec, domain.SectionAccessibility, p, p.Analyze, src.clone())
			return nil
		})
	}
	_ = g.Wait()

	result := domain.AnalysisResult{
		Fingerprint:         fp,
		SemanticAnalysis:    semantic,
		ContextAnalysis:     contextual,
		DependencyGraph:     graph,
		PerformanceMetrics:  performance,
		SecurityReport:      security,
		AccessibilityReport: accessibility,
		Diagnostics:         rec.sorted(),
		GeneratedAt:         a.clock(),
	}

	var scores subScores
	if semanticOK {
		qi := semantic.QualityIndicators
		scores.semantic = &qi
	}
	if securityOK {
		risk := RiskScore(security.Vulnerabilities, a.severities)
		result.SecurityReport.RiskScore = risk
		scores.risk = &risk
	}
	if src.Context != nil {
		if avg, ok := src.Context.AverageCoverage(); ok {
			scores.contextCov = &avg
		}
		result.ModuleAnalysis = moduleAnalysis(*src.Context)
	}
	result.SemanticAnalysis.QualityIndicators = qualityIndicators(scores, a.weights)

	return result
}

// runPort calls one analyzer under the per-analyzer timeout. A panic, error or
// timeout is recorded and the zero section is returned with ok false.
func runPort[T any](ctx context.Context, a *Aggregator, rec *recorder, section string, port any, analyze func(context.Context, Source) (T, error), src Source) (T, bool) {
	name := analyzerName(port)
	v, panicked, err := invoke(ctx, a.analyzerTimeout, func(ctx context.Context) (T, error) {
		return analyze(ctx, src)
	})
	if err == nil {
		return v, true
	}

	failure := core.NewAnalyzerFailure(section, name, err, panicked, a.clock())
	rec.add(failure)
	a.logger.Warn("analyzer degraded",
		"section", section,
		"analyzer", name,
		"timed_out", failure.TimedOut(),
		"error", err)

	var zero T
	return zero, false
}

type outcome[T any] struct {
	value    T
	err      error
	panicked bool
}

// invoke runs fn in its own goroutine so a stuck or panicking analyzer cannot
// hold up or crash the aggregation.
func invoke[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("panic: %v", r), panicked: true}
			}
		}()
		v, err := fn(ctx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.panicked, o.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

type recorder struct {
	mu       sync.Mutex
	failures []*core.AnalyzerFailure
}

func (r *recorder) add(f *core.AnalyzerFailure) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

// sorted returns diagnostics in section order regardless of arrival order.
func (r *recorder) sorted() []domain.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()

	rank := make(map[string]int, len(domain.SectionOrder))
	for i, s := range domain.SectionOrder {
		rank[s] = i
	}
	out := make([]domain.Diagnostic, 0, len(r.failures))
	for _, f := range r.failures {
		out = append(out, domain.Diagnostic{
			Section:  f.Section,
			Analyzer: f.Analyzer,
			Message:  f.Cause.Error(),
			At:       f.At,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i].Section] < rank[out[j].Section] })
	return out
}
