package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/alexanderramin/awp4d/internal/importer"
	"github.com/alexanderramin/awp4d/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const siteExport = `{
  "models": [{
    "source_guid": "2f0e4d7a-8b1c-4c3e-a6f9-0d5b7e9c1a23",
    "file_name": "structure.nwc",
    "nodes": [{
      "name": "Level 1",
      "has_geometry": false,
      "children": [
        {"name": "Column C1", "instance_id": "c1",
         "properties": [{"category": "Element", "name": "Id", "value": "C-1"}]},
        {"name": "Column C2", "instance_id": "c2",
         "properties": [
           {"category": "Element", "name": "Id", "value": "C-2"},
           {"category": "Element", "name": "Category", "value": "Columns"}
         ]}
      ]
    }]
  }]
}`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportModel(t *testing.T) {
	database, session := testutil.NewTestSession(t)
	ctx := context.Background()
	obs := &RecordingObserver{}
	svc := NewModelImportService(session.Tree, testutil.NewTestUoW(database), WithObserver(obs))

	res, err := svc.ImportModel(ctx, writeExport(t, siteExport))
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Models: 1, Nodes: 3, Properties: 3}, res)

	counts, err := session.Tree.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Models)
	assert.Equal(t, 3, counts.Nodes)
	assert.Equal(t, 2, counts.WithGeometry)

	models, err := session.Tree.Models(ctx)
	require.NoError(t, err)
	roots, err := session.Tree.Roots(ctx, models[0].ID)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	children, err := session.Tree.Children(ctx, roots[0].Key)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Column C2", children[1].DisplayName)

	found, err := session.Tree.Search(ctx, domain.PropertyCondition{Category: "Element", Name: "Id", Value: "C-2"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, children[1].Key, found[0].Key)

	events := obs.Named(useCaseImportModel)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.Equal(t, 3, events[0].Fields["nodes"])
}

func TestImportModel_AppendsAfterLoadedModels(t *testing.T) {
	database, session := testutil.NewTestSession(t)
	ctx := context.Background()
	svc := NewModelImportService(session.Tree, testutil.NewTestUoW(database))

	_, err := svc.ImportModel(ctx, writeExport(t, siteExport))
	require.NoError(t, err)
	_, err = svc.ImportModelFromSchema(ctx, &importer.ImportSchema{Models: []importer.ModelImport{
		{FileName: "mep.nwc", Nodes: []importer.NodeImport{{Name: "Duct"}}},
	}})
	require.NoError(t, err)

	models, err := session.Tree.Models(ctx)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "structure.nwc", models[0].FileName)
	assert.Equal(t, 1, models[1].Position)
}

func TestImportModel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		isValid bool
	}{
		{name: "malformed json", content: `{"models": [`, want: "parsing import file"},
		{name: "no models", content: `{"models": []}`, want: "at least one model is required", isValid: true},
		{name: "bad guid", content: `{"models": [{"source_guid": "nope", "file_name": "a.nwc", "nodes": [{"name": "n"}]}]}`, want: "invalid GUID", isValid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, session := testutil.NewTestSession(t)
			svc := NewModelImportService(session.Tree, testutil.NewTestUoW(database))

			_, err := svc.ImportModel(context.Background(), writeExport(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			if tt.isValid {
				assert.ErrorIs(t, err, app.ErrValidation)
			}

			counts, err := session.Tree.CountNodes(context.Background())
			require.NoError(t, err)
			assert.Zero(t, counts.Models)
		})
	}
}

func TestImportModel_RollsBackOnWriteFailure(t *testing.T) {
	database, session := testutil.NewTestSession(t)
	uow := &testutil.FailOnNthExecUoW{DB: database, FailOn: 3, Err: testutil.ErrInjected}
	svc := NewModelImportService(session.Tree, uow)

	_, err := svc.ImportModel(context.Background(), writeExport(t, siteExport))
	require.ErrorIs(t, err, testutil.ErrInjected)

	counts, err := session.Tree.CountNodes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Models, "a failed import leaves nothing behind")
	assert.Zero(t, counts.Nodes)
}

func TestResetModel(t *testing.T) {
	env := newSiteEnv(t)
	ctx := context.Background()
	svc := NewModelImportService(env.session.Tree, env.session.UoW)

	removed, err := svc.ResetModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	counts, err := env.session.Tree.CountNodes(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Nodes)
}
