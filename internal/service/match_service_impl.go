package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/repository"
)

var errEmptySyncID = errors.New("empty sync id")

// alternativeMatchKeys are searched in order after the configured property
// finds nothing.
var alternativeMatchKeys = []domain.PropertyKey{
	{Category: "Element", Name: "UniqueId"},
	{Category: "Element", Name: "Id"},
	{Category: "Item", Name: "GUID"},
	{Category: "Item", Name: "Name"},
	{Category: "Element ID", Name: "Value"},
	{Category: "LcRevitData", Name: "UniqueId"},
	{Category: "LcOaNode", Name: "GUID"},
}

type propertyCacheKey struct {
	category string
	name     string
	value    string
}

type cachedNode struct {
	node domain.ModelNode
	path string
}

type matchService struct {
	tree     repository.ModelTree
	resolver *identity.Resolver
	cfg      serviceConfig

	mu        sync.Mutex
	signature string
	matches   map[string]*Match
	props     map[propertyCacheKey][]cachedNode
	propBuilt bool
}

func NewMatchService(tree repository.ModelTree, resolver *identity.Resolver, opts ...Option) MatchService {
	return &matchService{
		tree:     tree,
		resolver: resolver,
		cfg:      newServiceConfig(opts),
		matches:  make(map[string]*Match),
	}
}

func (s *matchService) MatchAll(ctx context.Context, rows []*domain.ScheduleRow, opts app.PipelineOptions, sink progress.Sink) (result *domain.MatchResult, err error) {
	run := startUseCase(useCaseMatchAll, s.cfg.observer, s.cfg.clock)
	result = &domain.MatchResult{}
	defer func() {
		result.Elapsed = s.cfg.clock.Since(run.started)
		run.set("rows", len(rows))
		run.set("matched", result.Matched)
		run.set("not_found", result.NotFound)
		run.set("errors", result.Errors)
		run.set("cache_used", result.CacheUsed)
		run.set("match_rate", result.MatchRate())
		run.finish(ctx, err)
	}()

	if opts.UseMatchCache && len(rows) > opts.CacheThreshold && !s.cacheBuiltFor(opts) {
		if buildErr := s.BuildPropertyCache(ctx, opts); buildErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			s.cfg.logger.Warn("property cache unavailable, matching without it", "error", buildErr)
		}
	}
	result.CacheUsed = opts.UseMatchCache && s.cacheBuiltFor(opts)

	rep := newItemReporter(sink, progress.StageObjectMatching, len(rows))
	for i, row := range rows {
		if checkpoint(i, opts.BatchSize) {
			if err := ctx.Err(); err != nil {
				return result, err
			}
		}
		if cancelled := s.matchRow(ctx, row, opts, result.CacheUsed); cancelled != nil {
			return result, cancelled
		}
		result.Record(row)
		rep.report(i, row.SyncID, row.MatchStatus == domain.MatchMatched, row.MatchError)
	}
	return result, nil
}

// matchRow sets the row's match outcome. It returns an error only when the
// context was cancelled mid-row; the row is then left unmatched.
func (s *matchService) matchRow(ctx context.Context, row *domain.ScheduleRow, opts app.PipelineOptions, cached bool) error {
	row.ResetMatch()

	find := s.FindBySyncID
	if cached {
		find = s.FindBySyncIDCached
	}
	m, err := find(ctx, row.SyncID, opts)
	switch {
	case err != nil && ctx.Err() != nil:
		row.ResetMatch()
		return ctx.Err()
	case err != nil:
		row.MatchStatus = domain.MatchError
		row.MatchError = err.Error()
		s.cfg.logger.Debug("match failed", "sync_id", row.SyncID, "line", row.LineNumber, "error", err)
	case m == nil:
		row.MatchStatus = domain.MatchNotFound
		row.MatchError = "not found"
	default:
		row.MatchStatus = domain.MatchMatched
		row.MatchedNodeID = m.ID.Ptr()
	}
	return nil
}

// FindBySyncID searches the store for the row's node. A nil match with a
// nil error means no node carries the value.
func (s *matchService) FindBySyncID(ctx context.Context, syncID string, opts app.PipelineOptions) (*Match, error) {
	syncID = strings.TrimSpace(syncID)
	if syncID == "" {
		return nil, errEmptySyncID
	}
	s.syncSignature(opts)
	key := matchCacheKey(syncID, opts.IgnoreCaseInMatching)
	if opts.UseMatchCache {
		if m, ok := s.cachedMatch(key); ok {
			return m, nil
		}
	}

	for _, pk := range matchKeys(opts) {
		nodes, err := s.tree.Search(ctx, domain.PropertyCondition{
			Category:   pk.Category,
			Name:       pk.Name,
			Value:      syncID,
			IgnoreCase: opts.IgnoreCaseInMatching,
		})
		if err != nil {
			return nil, fmt.Errorf("searching %s.%s for %s: %w", pk.Category, pk.Name, syncID, err)
		}
		if len(nodes) == 0 {
			continue
		}
		candidates := make([]cachedNode, len(nodes))
		for i, n := range nodes {
			candidates[i] = cachedNode{node: n}
		}
		m := s.pick(ctx, syncID, pk, candidates, opts)
		s.storeMatch(key, m, opts)
		return m, nil
	}
	return nil, nil
}

// FindBySyncIDCached answers from the property cache and falls back to
// FindBySyncID on a miss or when the cache is not built.
func (s *matchService) FindBySyncIDCached(ctx context.Context, syncID string, opts app.PipelineOptions) (*Match, error) {
	syncID = strings.TrimSpace(syncID)
	if syncID == "" {
		return nil, errEmptySyncID
	}
	s.syncSignature(opts)
	key := matchCacheKey(syncID, opts.IgnoreCaseInMatching)
	if m, ok := s.cachedMatch(key); ok {
		return m, nil
	}

	value := cacheValue(syncID, opts.IgnoreCaseInMatching)
	for _, pk := range matchKeys(opts) {
		candidates, built := s.cachedCandidates(propertyKeyFor(pk, value))
		if !built {
			break
		}
		if len(candidates) == 0 {
			continue
		}
		m := s.pick(ctx, syncID, pk, candidates, opts)
		s.storeMatch(key, m, opts)
		return m, nil
	}
	return s.FindBySyncID(ctx, syncID, opts)
}

// BuildPropertyCache walks the tree once and indexes every value of the
// configured match property and each alternative.
func (s *matchService) BuildPropertyCache(ctx context.Context, opts app.PipelineOptions) error {
	keys := matchKeys(opts)
	index := make(map[propertyCacheKey][]cachedNode)
	seen := make(map[propertyCacheKey]map[int64]bool)

	err := identity.Walk(ctx, s.tree, func(v identity.Visit) error {
		cats, err := s.tree.Properties(ctx, v.Node.Key)
		if err != nil {
			return fmt.Errorf("loading properties of node %d: %w", v.Node.Key, err)
		}
		for _, pk := range keys {
			for _, value := range propertyValues(cats, pk) {
				k := propertyKeyFor(pk, cacheValue(value, opts.IgnoreCaseInMatching))
				if seen[k] == nil {
					seen[k] = make(map[int64]bool)
				}
				if seen[k][v.Node.Key] {
					continue
				}
				seen[k][v.Node.Key] = true
				index[k] = append(index[k], cachedNode{node: v.Node, path: v.Path})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("building property cache: %w", err)
	}

	for _, nodes := range index {
		sort.SliceStable(nodes, func(i, j int) bool {
			return domain.CandidateLess(&nodes[i].node, &nodes[j].node)
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(signatureOf(opts))
	s.props = index
	s.propBuilt = true
	s.cfg.logger.Debug("property cache built", "values", len(index))
	return nil
}

func (s *matchService) ClearCache() {
	s.mu.Lock()
	s.resetLocked("")
	s.mu.Unlock()
	s.resolver.ClearCache()
}

func (s *matchService) CacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheStats{
		MatchEntries:       len(s.matches),
		PropertyValues:     len(s.props),
		PropertyCacheBuilt: s.propBuilt,
	}
}

// pick resolves the first candidate. Candidates arrive in tie-break order.
func (s *matchService) pick(ctx context.Context, syncID string, pk domain.PropertyKey, candidates []cachedNode, opts app.PipelineOptions) *Match {
	first := candidates[0]
	if len(candidates) > 1 && !opts.AllowMultipleMatches {
		s.cfg.logger.Warn("ambiguous match, using first candidate",
			"sync_id", syncID,
			"property", pk.Category+"."+pk.Name,
			"candidates", len(candidates),
			"node", first.node.Key,
		)
	}
	node := first.node
	return &Match{
		Node:       node,
		ID:         s.resolver.Resolve(ctx, &node, first.path),
		Candidates: len(candidates),
		Property:   pk,
	}
}

func (s *matchService) cachedMatch(key string) (*Match, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[key]
	return m, ok
}

func (s *matchService) storeMatch(key string, m *Match, opts app.PipelineOptions) {
	if !opts.UseMatchCache {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[key] = m
}

// cachedCandidates reports the property cache entry and whether the cache
// is built.
func (s *matchService) cachedCandidates(k propertyCacheKey) ([]cachedNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.propBuilt {
		return nil, false
	}
	return s.props[k], true
}

func (s *matchService) cacheBuiltFor(opts app.PipelineOptions) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.propBuilt && s.signature == signatureOf(opts)
}

// syncSignature drops cached state built for different match options.
func (s *matchService) syncSignature(opts app.PipelineOptions) {
	sig := signatureOf(opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signature != sig {
		s.resetLocked(sig)
	}
}

func (s *matchService) resetLocked(signature string) {
	s.signature = signature
	s.matches = make(map[string]*Match)
	s.props = nil
	s.propBuilt = false
}

// matchKeys returns the configured property followed by the alternatives,
// without repeating the configured one.
func matchKeys(opts app.PipelineOptions) []domain.PropertyKey {
	primary := domain.PropertyKey{Category: opts.MatchPropertyCategory, Name: opts.MatchPropertyName}
	keys := make([]domain.PropertyKey, 0, len(alternativeMatchKeys)+1)
	keys = append(keys, primary)
	for _, alt := range alternativeMatchKeys {
		if strings.EqualFold(alt.Category, primary.Category) && strings.EqualFold(alt.Name, primary.Name) {
			continue
		}
		keys = append(keys, alt)
	}
	return keys
}

func signatureOf(opts app.PipelineOptions) string {
	return fmt.Sprintf("%s|%s|%t",
		strings.ToLower(opts.MatchPropertyCategory),
		strings.ToLower(opts.MatchPropertyName),
		opts.IgnoreCaseInMatching)
}

func matchCacheKey(syncID string, ignoreCase bool) string {
	return cacheValue(syncID, ignoreCase)
}

// cacheValue folds the way the store's value_folded column does.
func cacheValue(v string, ignoreCase bool) string {
	if ignoreCase {
		return domain.FoldValue(v)
	}
	return v
}

func propertyKeyFor(pk domain.PropertyKey, value string) propertyCacheKey {
	return propertyCacheKey{
		category: strings.ToLower(pk.Category),
		name:     strings.ToLower(pk.Name),
		value:    value,
	}
}

// propertyValues returns every value stored under pk, matching category and
// property by display or internal name.
func propertyValues(cats []domain.PropertyCategory, pk domain.PropertyKey) []string {
	var out []string
	for _, c := range cats {
		if !c.Matches(pk.Category) {
			continue
		}
		for _, p := range c.Properties {
			if strings.EqualFold(p.Name, pk.Name) || (p.InternalName != "" && strings.EqualFold(p.InternalName, pk.Name)) {
				out = append(out, p.Value)
			}
		}
	}
	return out
}
