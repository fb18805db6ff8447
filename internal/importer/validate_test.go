package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrBool(b bool) *bool { return &b }

func validMinimalSchema() *ImportSchema {
	return &ImportSchema{
		Models: []ModelImport{{
			SourceGUID: "a3f0c1de-0000-4000-8000-000000000001",
			FileName:   "site.nwc",
			Nodes: []NodeImport{{
				Name: "Site",
				Children: []NodeImport{
					{Name: "Wall", InstanceID: "W-1", Properties: []PropertyImport{
						{Category: "Element", Name: "Id", Value: "101"},
					}},
				},
			}},
		}},
	}
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func TestValidateImportSchema_ValidMinimal(t *testing.T) {
	assert.Empty(t, ValidateImportSchema(validMinimalSchema()))
}

func TestValidateImportSchema_NoModels(t *testing.T) {
	errs := ValidateImportSchema(&ImportSchema{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "at least one model")
}

func TestValidateImportSchema_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *ImportSchema)
		want   string
	}{
		{
			name:   "missing file name",
			mutate: func(s *ImportSchema) { s.Models[0].FileName = " " },
			want:   "models[0].file_name is required",
		},
		{
			name:   "bad guid",
			mutate: func(s *ImportSchema) { s.Models[0].SourceGUID = "not-a-guid" },
			want:   `models[0].source_guid: invalid GUID "not-a-guid"`,
		},
		{
			name: "duplicate guid",
			mutate: func(s *ImportSchema) {
				dup := s.Models[0]
				dup.SourceGUID = "A3F0C1DE-0000-4000-8000-000000000001"
				s.Models = append(s.Models, dup)
			},
			want: "models[1].source_guid: duplicate of models[0]",
		},
		{
			name:   "no nodes",
			mutate: func(s *ImportSchema) { s.Models[0].Nodes = nil },
			want:   "models[0].nodes: at least one node is required",
		},
		{
			name: "property name",
			mutate: func(s *ImportSchema) {
				s.Models[0].Nodes[0].Children[0].Properties = append(s.Models[0].Nodes[0].Children[0].Properties,
					PropertyImport{Category: "Item", Value: "x"})
			},
			want: "models[0].nodes[0].children[0].properties[1].name is required",
		},
		{
			name: "property category",
			mutate: func(s *ImportSchema) {
				s.Models[0].Nodes[0].Properties = []PropertyImport{{Name: "Id"}}
			},
			want: "models[0].nodes[0].properties[0].category is required",
		},
		{
			name: "duplicate instance id",
			mutate: func(s *ImportSchema) {
				s.Models[0].Nodes[0].Children = append(s.Models[0].Nodes[0].Children, NodeImport{Name: "Copy", InstanceID: "W-1"})
			},
			want: `models[0].nodes[0].children[1].instance_id: duplicate "W-1" (first at models[0].nodes[0].children[0])`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validMinimalSchema()
			tt.mutate(s)
			assert.Contains(t, errorStrings(ValidateImportSchema(s)), tt.want)
		})
	}
}

func TestValidateImportSchema_CollectsAllErrors(t *testing.T) {
	s := validMinimalSchema()
	s.Models[0].FileName = ""
	s.Models[0].Nodes[0].Properties = []PropertyImport{{}}
	errs := ValidateImportSchema(s)
	assert.Len(t, errs, 3)
}

func TestLoadImportSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"models": [{
			"source_guid": "a3f0c1de-0000-4000-8000-000000000001",
			"file_name": "site.nwc",
			"nodes": [{"name": "Site", "has_geometry": false, "children": [
				{"name": "Wall", "properties": [{"category": "Element", "name": "Id", "value": "101", "read_only": true}]}
			]}]
		}]
	}`), 0o644))

	s, err := LoadImportSchema(path)
	require.NoError(t, err)
	require.Len(t, s.Models, 1)
	require.NotNil(t, s.Models[0].Nodes[0].HasGeometry)
	assert.False(t, *s.Models[0].Nodes[0].HasGeometry)
	assert.True(t, s.Models[0].Nodes[0].Children[0].Properties[0].ReadOnly)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"models": [`), 0o644))
	_, err = LoadImportSchema(bad)
	assert.ErrorContains(t, err, "parsing import file")

	_, err = LoadImportSchema(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
