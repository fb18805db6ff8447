package importer

import (
	"encoding/json"
	"fmt"
	"os"
)

// ImportSchema is the top-level JSON structure of a model-tree export.
type ImportSchema struct {
	Models []ModelImport `json:"models"`
}

// ModelImport is one model file with its root nodes.
type ModelImport struct {
	SourceGUID string       `json:"source_guid"`
	FileName   string       `json:"file_name"`
	Nodes      []NodeImport `json:"nodes"`
}

// NodeImport is a model node. HasGeometry defaults to true when omitted.
type NodeImport struct {
	Name        string           `json:"name"`
	ClassName   string           `json:"class_name,omitempty"`
	InstanceID  string           `json:"instance_id,omitempty"`
	Hidden      bool             `json:"hidden,omitempty"`
	HasGeometry *bool            `json:"has_geometry,omitempty"`
	Properties  []PropertyImport `json:"properties,omitempty"`
	Children    []NodeImport     `json:"children,omitempty"`
}

// PropertyImport is one property value on a node.
type PropertyImport struct {
	Category         string `json:"category"`
	CategoryInternal string `json:"category_internal,omitempty"`
	Name             string `json:"name"`
	InternalName     string `json:"internal_name,omitempty"`
	Value            string `json:"value"`
	ReadOnly         bool   `json:"read_only,omitempty"`
}

// LoadImportSchema reads and parses a model-tree JSON file.
func LoadImportSchema(path string) (*ImportSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var schema ImportSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing import file: %w", err)
	}
	return &schema, nil
}
