package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskPaths(tasks []domain.TaskSummary) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Path
	}
	return out
}

// groupedRows matches rows and materializes their selection sets, returning
// the rows and the sync id to set name mapping.
func groupedRows(t *testing.T, env *siteEnv, opts app.PipelineOptions, rows ...*domain.ScheduleRow) ([]*domain.ScheduleRow, map[string]string) {
	t.Helper()
	env.match(t, opts, rows...)
	res, err := NewSelectionSetService(env.session.Selections, env.resolver).CreateHierarchicalSets(context.Background(), rows, opts, nil)
	require.NoError(t, err)
	return rows, res.SyncIDToGroup
}

func TestCreateTasks_HierarchicalLinkedToSets(t *testing.T) {
	env := newSiteEnv(t)
	ctx := context.Background()
	opts := testOptions()
	obs := &RecordingObserver{}
	rows, groups := groupedRows(t, env, opts,
		plannedRow("A-100", "Zone A/Level 1", testutil.WithTaskName("Erect wall A")),
		plannedRow("B-200", "Zone A/Level 1"),
		plannedRow("C-300", "Zone B", testutil.WithTaskType(domain.TaskTemporary)),
	)

	svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver, WithObserver(obs))
	res, err := svc.CreateTasks(ctx, rows, groups, opts, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TaskCount)
	assert.Equal(t, 3, res.LinkedCount)
	assert.Zero(t, res.UnlinkedCount)
	assert.Equal(t, 4, res.FolderCount)
	assert.Empty(t, res.FailedTasks)
	assert.Equal(t, "AWP 4D Tasks/Zone A/Level 1", res.CreatedTasks[0].FolderPath)
	assert.Equal(t, 2, res.CreatedTasks[0].MemberCount, "linked to the whole Level 1 set")

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"AWP 4D Tasks/Zone A/Level 1/Erect wall A",
		"AWP 4D Tasks/Zone A/Level 1/B-200",
		"AWP 4D Tasks/Zone B/C-300",
	}, taskPaths(tasks))
	assert.Equal(t, domain.TaskTemporary, tasks[2].TaskType)
	require.NotNil(t, tasks[0].PlannedStart)
	assert.Equal(t, "2025-03-03", tasks[0].PlannedStart.Format("2006-01-02"))

	events := obs.Named(useCaseCreateTasks)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].Fields["linked"])
}

func TestCreateTasks_Flat(t *testing.T) {
	env := newSiteEnv(t)
	ctx := context.Background()
	opts := testOptions()
	opts.HierarchicalTasks = false
	rows, groups := groupedRows(t, env, opts,
		plannedRow("A-100", "Zone A/Level 1"),
		plannedRow("C-300", "Zone B"),
	)

	svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver)
	res, err := svc.CreateTasks(ctx, rows, groups, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FolderCount)

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AWP 4D Tasks/A-100", "AWP 4D Tasks/C-300"}, taskPaths(tasks))
}

func TestCreateTasks_HierarchicalFollowsFolderOrder(t *testing.T) {
	env := newSiteEnv(t)
	ctx := context.Background()
	opts := testOptions()
	rows, groups := groupedRows(t, env, opts,
		plannedRow("A-100", "Zone A"),
		plannedRow("C-300", "Zone B"),
		plannedRow("B-200", "Zone A"),
	)

	svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver)
	res, err := svc.CreateTasks(ctx, rows, groups, opts, nil)
	require.NoError(t, err)

	created := make([]string, len(res.CreatedTasks))
	for i, c := range res.CreatedTasks {
		created[i] = c.SyncID
	}
	assert.Equal(t, []string{"A-100", "B-200", "C-300"}, created)

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"AWP 4D Tasks/Zone A/A-100",
		"AWP 4D Tasks/Zone A/B-200",
		"AWP 4D Tasks/Zone B/C-300",
	}, taskPaths(tasks))
}

func TestCreateTasks_CancellationKeepsBuiltTasks(t *testing.T) {
	tests := []struct {
		name        string
		failReplace bool
		wantKept    int
	}{
		{name: "partial tree is saved", wantKept: 2},
		{name: "failed save reports nothing", failReplace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newSiteEnv(t)
			opts := testOptions()
			opts.BatchSize = 1
			opts.HierarchicalTasks = false
			rows, groups := groupedRows(t, env, opts,
				plannedRow("A-100", "Zone A"),
				plannedRow("B-200", "Zone A"),
				plannedRow("C-300", "Zone B"),
			)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			items := 0
			sink := progress.Funcs{OnItem: func(progress.Item) {
				items++
				if items == 2 {
					cancel()
				}
			}}

			var repo repository.TaskRepository = env.session.Tasks
			if tt.failReplace {
				repo = &testutil.FailingTaskRepo{TaskRepository: env.session.Tasks, FailReplace: true}
			}
			res, err := NewTaskService(repo, env.session.Selections, env.resolver).CreateTasks(ctx, rows, groups, opts, sink)
			require.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, tt.wantKept, res.TaskCount)
			assert.Len(t, res.CreatedTasks, tt.wantKept)

			n, err := env.session.Tasks.Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantKept, n, "reported tasks are the persisted tasks")
		})
	}
}

func TestCreateTasks_LinkModes(t *testing.T) {
	tests := []struct {
		mode         domain.LinkMode
		wantLinked   int
		wantUnlinked int
		wantMembers  int
	}{
		{mode: domain.LinkSelectionSet, wantLinked: 1, wantMembers: 2},
		{mode: domain.LinkExplicit, wantLinked: 1, wantMembers: 1},
		{mode: domain.LinkSearch, wantUnlinked: 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			env := newSiteEnv(t)
			opts := testOptions()
			opts.LinkMode = tt.mode
			rows, groups := groupedRows(t, env, opts,
				plannedRow("A-100", "Zone A"),
				plannedRow("B-200", "Zone A"),
			)

			svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver)
			res, err := svc.CreateTasks(context.Background(), rows[:1], groups, opts, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLinked, res.LinkedCount)
			assert.Equal(t, tt.wantUnlinked, res.UnlinkedCount)
			assert.Equal(t, tt.wantMembers, res.CreatedTasks[0].MemberCount)
		})
	}
}

func TestCreateTasks_MissingGroupLeavesTaskUnlinked(t *testing.T) {
	env := newSiteEnv(t)
	opts := testOptions()
	rows := env.match(t, opts, plannedRow("A-100", "Zone A"))

	svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver)
	res, err := svc.CreateTasks(context.Background(), rows, map[string]string{"A-100": "No such set"}, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TaskCount)
	assert.Equal(t, 1, res.UnlinkedCount)
	assert.Empty(t, res.FailedTasks)
}

func TestCreateTasks_LinkFailureIsContained(t *testing.T) {
	env := newSiteEnv(t)
	opts := testOptions()
	rows, groups := groupedRows(t, env, opts,
		plannedRow("A-100", "Zone A"),
		plannedRow("C-300", "Zone B"),
	)
	repo := &testutil.FailingSelectionRepo{SelectionRepository: env.session.Selections, FailFind: true}

	res, err := NewTaskService(env.session.Tasks, repo, env.resolver).CreateTasks(context.Background(), rows, groups, opts, nil)
	require.NoError(t, err)
	assert.Zero(t, res.TaskCount)
	require.Len(t, res.FailedTasks, 2)
	assert.Equal(t, "A-100", res.FailedTasks[0].SyncID)
	assert.Contains(t, res.FailedTasks[0].Reason, testutil.ErrInjected.Error())
}

func TestCreateTasks_ReplacesOnlyItsRoot(t *testing.T) {
	env := newSiteEnv(t)
	ctx := context.Background()
	opts := testOptions()

	manual, err := env.session.Tasks.WorkingCopy(ctx)
	require.NoError(t, err)
	folder := &domain.TaskNode{Kind: domain.TaskNodeFolder, Name: "Manual"}
	folder.Add(&domain.TaskNode{Kind: domain.TaskNodeTask, Name: "Site setup", SyncID: "M-1"})
	manual.Roots = append(manual.Roots, folder)
	require.NoError(t, env.session.Tasks.Replace(ctx, manual))

	svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver)
	for i := 0; i < 2; i++ {
		rows, groups := groupedRows(t, env, opts, plannedRow("A-100", "Zone A"), plannedRow("B-200", "Zone A"))
		_, err := svc.CreateTasks(ctx, rows, groups, opts, nil)
		require.NoError(t, err)
	}

	tasks, err := svc.ListTasks(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"Manual/Site setup",
		"AWP 4D Tasks/Zone A/A-100",
		"AWP 4D Tasks/Zone A/B-200",
	}, taskPaths(tasks))
}

func TestCreateTasks_NoEligibleRows(t *testing.T) {
	env := newSiteEnv(t)
	opts := testOptions()
	unplanned := testutil.NewTestRow("A-100")
	rows := env.match(t, opts, unplanned, plannedRow("X-404", "Zone C"))

	res, err := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver).CreateTasks(context.Background(), rows, nil, opts, nil)
	require.NoError(t, err)
	require.Len(t, res.FailedTasks, 1)
	assert.Zero(t, res.TaskCount)

	n, err := env.session.Tasks.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateTasks_StoreFailures(t *testing.T) {
	t.Run("no task list", func(t *testing.T) {
		env := newSiteEnv(t)
		opts := testOptions()
		rows := env.match(t, opts, plannedRow("A-100", "Zone A"))

		_, err := NewTaskService(nil, env.session.Selections, env.resolver).CreateTasks(context.Background(), rows, nil, opts, nil)
		assert.ErrorIs(t, err, app.ErrTask)
		assert.ErrorIs(t, err, errNoTaskList)
	})

	t.Run("replace fails", func(t *testing.T) {
		env := newSiteEnv(t)
		opts := testOptions()
		rows := env.match(t, opts, plannedRow("A-100", "Zone A"))
		repo := &testutil.FailingTaskRepo{TaskRepository: env.session.Tasks, FailReplace: true}

		_, err := NewTaskService(repo, env.session.Selections, env.resolver).CreateTasks(context.Background(), rows, nil, opts, nil)
		assert.ErrorIs(t, err, app.ErrTask)
		assert.Equal(t, app.ErrKindTask, app.ClassifyError(err))

		n, err := env.session.Tasks.Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n, "the live tree is untouched")
	})
}

func TestTaskQueries(t *testing.T) {
	env := newSiteEnv(t)
	ctx := context.Background()
	opts := testOptions()
	rows, groups := groupedRows(t, env, opts, plannedRow("A-100", "Zone A"))
	rows = append(rows, env.match(t, opts, plannedRow("C-300", "Zone B"))...)

	svc := NewTaskService(env.session.Tasks, env.session.Selections, env.resolver)
	_, err := svc.CreateTasks(ctx, rows, groups, opts, nil)
	require.NoError(t, err)

	found, err := svc.FindBySyncID(ctx, "C-300")
	require.NoError(t, err)
	assert.False(t, found.Linked)

	_, err = svc.FindBySyncID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	sum, err := svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskLinkSummary{Total: 2, Linked: 1, Unlinked: 1}, sum)

	removed, err := svc.ClearTasks(ctx, opts.TaskRootFolder)
	require.NoError(t, err)
	// Root, two zone folders and two tasks.
	assert.Equal(t, 5, removed)

	sum, err = svc.Summarize(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}
