package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/grouping"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/repository"
)

type selectionSetService struct {
	selections repository.SelectionRepository
	resolver   *identity.Resolver
	cfg        serviceConfig
}

func NewSelectionSetService(selections repository.SelectionRepository, resolver *identity.Resolver, opts ...Option) SelectionSetService {
	return &selectionSetService{
		selections: selections,
		resolver:   resolver,
		cfg:        newServiceConfig(opts),
	}
}

// setRun holds the per-call folder and name caches.
type setRun struct {
	root    *domain.SelectionItem
	folders map[string]*domain.SelectionItem
	names   map[string]bool
	groups  map[string]string
}

func (s *selectionSetService) CreateHierarchicalSets(ctx context.Context, rows []*domain.ScheduleRow, opts app.PipelineOptions, sink progress.Sink) (result *domain.SelectionSetResult, err error) {
	run := startUseCase(useCaseCreateSelectionSets, s.cfg.observer, s.cfg.clock)
	result = domain.NewSelectionSetResult()
	defer func() {
		run.set("strategy", string(opts.GroupingStrategy))
		run.set("sets", result.SetCount)
		run.set("folders", result.FolderCount)
		run.set("items", result.TotalItemCount)
		run.set("failed", len(result.FailedSets))
		run.finish(ctx, err)
	}()

	matched := matchedRows(rows)
	if len(matched) == 0 {
		result.FailedSets = append(result.FailedSets, domain.FailedSet{Reason: "no matched rows"})
		return result, nil
	}

	buckets, err := grouping.Bucket(matched, opts.GroupingStrategy)
	if err != nil {
		return result, app.Wrapf(app.ErrGroup, err, "grouping rows")
	}

	root, err := s.selections.EnsureFolder(ctx, nil, opts.SelectionSetRootFolder)
	if err != nil {
		return result, app.Wrapf(app.ErrGroup, err, "creating root folder %s", opts.SelectionSetRootFolder)
	}
	state := &setRun{
		root:    root,
		folders: map[string]*domain.SelectionItem{"": root},
		names:   make(map[string]bool),
		groups:  result.SyncIDToGroup,
	}
	defer func() {
		result.FolderCount = len(state.folders)
	}()

	rep := newItemReporter(sink, progress.StageSelectionSets, len(buckets))
	for i := range buckets {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		b := &buckets[i]
		created, bucketErr := s.createBucketSet(ctx, state, b, opts)
		result.Buckets = append(result.Buckets, *b)

		if bucketErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.FailedSets = append(result.FailedSets, domain.FailedSet{Key: b.Key, Reason: bucketErr.Error()})
			rep.report(i, b.Key, false, bucketErr.Error())
			s.cfg.logger.Warn("selection set failed", "key", b.Key, "error", bucketErr)
			if !opts.ContinueOnError {
				return result, app.Wrapf(app.ErrGroup, bucketErr, "creating set for %s", b.Key)
			}
			continue
		}
		if !created {
			rep.report(i, b.Key, true, "")
			continue
		}

		result.SetCount++
		result.TotalItemCount += b.ItemCount
		result.CreatedSets = append(result.CreatedSets, domain.CreatedSet{
			Name:       b.SetName,
			FolderPath: b.FolderPath,
			ItemCount:  b.ItemCount,
		})
		rep.report(i, b.SetName, true, "")
	}
	return result, nil
}

// createBucketSet materializes one bucket. It reports false without error
// when an empty bucket is skipped.
func (s *selectionSetService) createBucketSet(ctx context.Context, state *setRun, b *domain.GroupBucket, opts app.PipelineOptions) (bool, error) {
	segments := grouping.FolderSegments(opts.GroupingStrategy, b.Key)
	folder, err := s.ensureFolderPath(ctx, state, segments)
	if err != nil {
		return false, err
	}
	b.FolderPath = joinPath(append([]string{state.root.Name}, segments...)...)

	members, located := s.resolveMembers(ctx, b.Rows)
	b.ItemCount = len(members)
	if len(members) == 0 && opts.SkipEmptySelectionSets {
		s.cfg.logger.Debug("skipping empty selection set", "key", b.Key)
		return false, nil
	}

	name := uniqueSetName(state.names, segments[len(segments)-1], len(b.Rows))
	if _, err := s.selections.UpsertSet(ctx, folder.ID, name, members); err != nil {
		return false, fmt.Errorf("saving set %s: %w", name, err)
	}
	state.names[name] = true
	b.SetName = name
	for _, id := range located {
		state.groups[id] = name
	}
	return true, nil
}

// ensureFolderPath finds or creates each folder below the root, caching by
// cumulative path.
func (s *selectionSetService) ensureFolderPath(ctx context.Context, state *setRun, segments []string) (*domain.SelectionItem, error) {
	parent := state.root
	path := ""
	for _, seg := range segments {
		path = joinPath(path, seg)
		if f, ok := state.folders[path]; ok {
			parent = f
			continue
		}
		parentID := parent.ID
		f, err := s.selections.EnsureFolder(ctx, &parentID, seg)
		if err != nil {
			return nil, fmt.Errorf("creating folder %s: %w", path, err)
		}
		state.folders[path] = f
		parent = f
	}
	return parent, nil
}

// resolveMembers locates the node of each row. It returns the distinct
// node keys and the sync ids of every row whose node was found.
func (s *selectionSetService) resolveMembers(ctx context.Context, rows []*domain.ScheduleRow) ([]int64, []string) {
	seen := make(map[int64]bool, len(rows))
	keys := make([]int64, 0, len(rows))
	located := make([]string, 0, len(rows))
	for _, r := range rows {
		node, err := s.resolver.Locate(ctx, *r.MatchedNodeID)
		if err != nil {
			s.cfg.logger.Warn("matched node not located for set", "sync_id", r.SyncID, "error", err)
			continue
		}
		located = append(located, r.SyncID)
		if seen[node.Key] {
			continue
		}
		seen[node.Key] = true
		keys = append(keys, node.Key)
	}
	return keys, located
}

// uniqueSetName returns base if unused in this run, else base_{n}items,
// else base_{n}items_2, _3 and so on.
func uniqueSetName(used map[string]bool, base string, rowCount int) string {
	if !used[base] {
		return base
	}
	name := fmt.Sprintf("%s_%ditems", base, rowCount)
	if !used[name] {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !used[candidate] {
			return candidate
		}
	}
}

func (s *selectionSetService) ClearSelectionSets(ctx context.Context, rootName string) (int, error) {
	n, err := s.selections.DeleteRoot(ctx, rootName)
	if err != nil {
		return 0, fmt.Errorf("clearing selection sets under %s: %w", rootName, err)
	}
	return n, nil
}

func (s *selectionSetService) ListSets(ctx context.Context, rootName string) ([]domain.SelectionEntry, error) {
	return s.selections.List(ctx, rootName)
}
