package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/testutil"
	"github.com/stretchr/testify/require"
)

// siteEnv is a loaded model document with a small building:
//
//	Site
//	├── Wall A       Element.Id = A-100
//	├── Wall B       Element.Id = B-200
//	├── Slab C       Element.UniqueId = C-300
//	├── Beam D1      Element.Id = DUP, instance id zz
//	└── Beam D2      Element.Id = DUP, instance id aa
type siteEnv struct {
	db       *sql.DB
	session  *repository.ModelSession
	resolver *identity.Resolver
	nodes    map[string]*domain.ModelNode
}

func newSiteEnv(t *testing.T) *siteEnv {
	t.Helper()
	database, session := testutil.NewTestSession(t)
	b := testutil.NewTreeBuilder(t, session.Writer)
	b.Model("7d1c0b8e-1f4a-4c2e-9c55-3f7e1a2b9d10", "site.nwd")

	nodes := make(map[string]*domain.ModelNode)
	site := b.Root("Site", testutil.WithoutGeometry())
	nodes["Site"] = site
	nodes["Wall A"] = b.Add(site, "Wall A", testutil.WithElementID("A-100"))
	nodes["Wall B"] = b.Add(site, "Wall B", testutil.WithElementID("B-200"))
	nodes["Slab C"] = b.Add(site, "Slab C", testutil.WithProperty("Element", "UniqueId", "C-300"))
	nodes["Beam D1"] = b.Add(site, "Beam D1", testutil.WithElementID("DUP"), testutil.WithInstanceID("zz"))
	nodes["Beam D2"] = b.Add(site, "Beam D2", testutil.WithElementID("DUP"), testutil.WithInstanceID("aa"))

	return &siteEnv{
		db:       database,
		session:  session,
		resolver: identity.NewResolver(session.Tree),
		nodes:    nodes,
	}
}

func (e *siteEnv) matcher(opts ...Option) MatchService {
	return NewMatchService(e.session.Tree, e.resolver, opts...)
}

// match runs the matcher over rows so later stages see matched rows.
func (e *siteEnv) match(t *testing.T, opts app.PipelineOptions, rows ...*domain.ScheduleRow) []*domain.ScheduleRow {
	t.Helper()
	_, err := e.matcher().MatchAll(context.Background(), rows, opts, nil)
	require.NoError(t, err)
	return rows
}

// idOf resolves the identity of the named fixture node.
func (e *siteEnv) idOf(name string) domain.NodeIdentity {
	return e.resolver.Resolve(context.Background(), e.nodes[name], "")
}

// testOptions are the defaults with fast retries.
func testOptions() app.PipelineOptions {
	o := app.DefaultOptions()
	o.RetryDelay = time.Millisecond
	return o
}

func plannedRow(syncID, parentSet string, opts ...testutil.RowOption) *domain.ScheduleRow {
	opts = append([]testutil.RowOption{
		testutil.WithParentSet(parentSet),
		testutil.WithPlanned("2025-03-03", "2025-03-14"),
	}, opts...)
	return testutil.NewTestRow(syncID, opts...)
}

// scheduleCSV is a schedule for the site fixture; X-404 has no node.
var scheduleCSV = []string{
	"SyncID,TaskName,PlannedStartDate,PlannedEndDate,ParentSet,TaskType",
	"A-100,Erect wall A,2025-03-03,2025-03-07,Zone A/Level 1,Construct",
	"B-200,Erect wall B,2025-03-10,2025-03-14,Zone A/Level 1,Construct",
	"C-300,Pour slab C,2025-03-17,2025-03-21,Zone B,Construct",
	"DUP,Set beams,2025-03-24,2025-03-28,Zone B,Temporary",
	"X-404,Unknown element,2025-03-31,2025-04-04,Zone C,Construct",
}
