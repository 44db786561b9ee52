// Package unused implements the two-phase pipeline that finds declared but
// unreferenced code elements: COLLECTING builds the declaration index
// sequentially, RESOLVING matches usage in parallel per file over the
// shrinking unresolved remainder, then results are sorted and emitted.
package unused

import (
	"runtime"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/sourcegraph/conc/pool"

	"exhume/internal/textio"
	"exhume/pkg/frontend"
)

// DiagnosticFunc receives per-file degradation notices (unreadable or
// malformed files). The scan always continues; degraded files contribute
// nothing.
type DiagnosticFunc func(path string, err error)

// ProgressFunc is called after each file visited in a phase.
type ProgressFunc func()

// Analyzer drives the pipeline against one language front end.
type Analyzer struct {
	front        frontend.FrontEnd
	workers      int
	onDiagnostic DiagnosticFunc
	onCollect    ProgressFunc
	onResolve    ProgressFunc
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers sets the resolution pool size; n <= 0 keeps the default of one
// worker per CPU.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithDiagnostics sets the callback for per-file degradation notices.
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(a *Analyzer) { a.onDiagnostic = fn }
}

// WithCollectProgress sets the per-file callback for the collection phase.
func WithCollectProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) { a.onCollect = fn }
}

// WithResolveProgress sets the per-file callback for the resolution phase.
func WithResolveProgress(fn ProgressFunc) Option {
	return func(a *Analyzer) { a.onResolve = fn }
}

// New creates an analyzer for the given front end.
func New(front frontend.FrontEnd, opts ...Option) *Analyzer {
	a := &Analyzer{
		front:   front,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// index accumulates declarations in insertion order. First writer wins; an
// entry is never overwritten.
type index struct {
	order    []*frontend.CodeElement
	ordinals map[string]uint32
}

func newIndex() *index {
	return &index{ordinals: make(map[string]uint32)}
}

func (ix *index) insert(el *frontend.CodeElement) {
	if _, ok := ix.ordinals[el.QualifiedName]; ok {
		return
	}
	ix.ordinals[el.QualifiedName] = uint32(len(ix.order))
	ix.order = append(ix.order, el)
}

// Analyze runs the full pipeline rooted at root. limit > 0 caps the result
// count and enables the early exit: once the unresolved remainder is at most
// limit, no further files are visited.
func (a *Analyzer) Analyze(root string, limit int) (*Report, error) {
	analysis, tests, err := a.front.ClassifyFiles(root)
	if err != nil {
		return nil, err
	}

	ix := a.collect(analysis)

	all := make([]string, 0, len(analysis)+len(tests))
	all = append(all, analysis...)
	all = append(all, tests...)

	found := roaring.New()

	for _, path := range all {
		unresolvedTotal := len(ix.order) - int(found.GetCardinality())
		if limit > 0 && unresolvedTotal <= limit {
			// The remainder is already small enough to report. Which
			// elements survive becomes visit-order dependent here; a
			// documented trade of exhaustiveness for throughput.
			break
		}

		content, err := textio.ReadFile(path)
		if err != nil {
			a.diagnostic(path, err)
			a.tick(a.onResolve)
			continue
		}

		unresolved := make([]*frontend.CodeElement, 0, unresolvedTotal)
		for i, el := range ix.order {
			if !found.Contains(uint32(i)) {
				unresolved = append(unresolved, el)
			}
		}

		// Workers only read the file content and element descriptors; the
		// found set is mutated on this goroutine after the batch returns.
		p := pool.NewWithResults[int64]().WithMaxGoroutines(a.workers)
		for _, el := range unresolved {
			ordinal := int64(ix.ordinals[el.QualifiedName])
			p.Go(func() int64 {
				if a.front.MatchUsage(content, path, el) {
					return ordinal
				}
				return -1
			})
		}
		for _, ordinal := range p.Wait() {
			if ordinal >= 0 {
				found.Add(uint32(ordinal))
			}
		}
		a.tick(a.onResolve)
	}

	report := &Report{
		Language:      string(a.front.Language()),
		Root:          root,
		AnalysisFiles: len(analysis),
		TestFiles:     len(tests),
		Declarations:  len(ix.order),
		Results:       buildResults(ix, found, limit),
	}
	return report, nil
}

// ListDeclarations runs the collection phase only and reports every declared
// element regardless of usage, sorted the same way as scan results.
func (a *Analyzer) ListDeclarations(root string) (*Report, error) {
	analysis, tests, err := a.front.ClassifyFiles(root)
	if err != nil {
		return nil, err
	}

	ix := a.collect(analysis)

	return &Report{
		Language:      string(a.front.Language()),
		Root:          root,
		AnalysisFiles: len(analysis),
		TestFiles:     len(tests),
		Declarations:  len(ix.order),
		Results:       buildResults(ix, roaring.New(), 0),
	}, nil
}

// collect visits analysis files sequentially and merges each extraction into
// the index. Sequential merging is what gives first-writer-wins its meaning.
func (a *Analyzer) collect(files []string) *index {
	ix := newIndex()
	for _, path := range files {
		content, err := textio.ReadFile(path)
		if err != nil {
			a.diagnostic(path, err)
			a.tick(a.onCollect)
			continue
		}
		elements, err := a.front.ExtractElements(content, path)
		if err != nil {
			// Malformed source: surfaced as a diagnostic, contributes
			// whatever was returned (usually nothing).
			a.diagnostic(path, err)
		}
		for _, el := range elements {
			ix.insert(el)
		}
		a.tick(a.onCollect)
	}
	return ix
}

// buildResults emits index entries absent from the found set, sorted by
// declared lines descending with insertion order as the stable tie-break,
// truncated to limit after sorting when limit > 0.
func buildResults(ix *index, found *roaring.Bitmap, limit int) []Result {
	candidates := make([]*frontend.CodeElement, 0, len(ix.order))
	for i, el := range ix.order {
		if !found.Contains(uint32(i)) {
			candidates = append(candidates, el)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DeclaredLines > candidates[j].DeclaredLines
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]Result, len(candidates))
	for i, el := range candidates {
		results[i] = Result{
			QualifiedName: el.QualifiedName,
			DeclaredLines: el.DeclaredLines,
			UsageCount:    0,
			Status:        el.Status(),
			File:          el.DeclaredIn,
			Fingerprint:   el.Fingerprint(),
		}
	}
	return results
}

func (a *Analyzer) diagnostic(path string, err error) {
	if a.onDiagnostic != nil {
		a.onDiagnostic(path, err)
	}
}

func (a *Analyzer) tick(fn ProgressFunc) {
	if fn != nil {
		fn()
	}
}
