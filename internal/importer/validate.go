package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateImportSchema checks the import schema for errors before conversion.
// Returns a slice of all validation errors found.
func ValidateImportSchema(schema *ImportSchema) []error {
	var errs []error

	if len(schema.Models) == 0 {
		return []error{fmt.Errorf("models: at least one model is required")}
	}

	guids := make(map[string]int)
	for i, m := range schema.Models {
		prefix := fmt.Sprintf("models[%d]", i)

		if strings.TrimSpace(m.FileName) == "" {
			errs = append(errs, fmt.Errorf("%s.file_name is required", prefix))
		}
		if m.SourceGUID != "" {
			if _, err := uuid.Parse(m.SourceGUID); err != nil {
				errs = append(errs, fmt.Errorf("%s.source_guid: invalid GUID %q", prefix, m.SourceGUID))
			} else if prev, ok := guids[strings.ToLower(m.SourceGUID)]; ok {
				errs = append(errs, fmt.Errorf("%s.source_guid: duplicate of models[%d]", prefix, prev))
			} else {
				guids[strings.ToLower(m.SourceGUID)] = i
			}
		}
		if len(m.Nodes) == 0 {
			errs = append(errs, fmt.Errorf("%s.nodes: at least one node is required", prefix))
		}

		errs = append(errs, validateNodes(prefix, m.Nodes)...)
	}

	return errs
}

// validateNodes walks one model's nodes iteratively; exports can be deep.
func validateNodes(modelPrefix string, roots []NodeImport) []error {
	var errs []error

	type item struct {
		node   *NodeImport
		prefix string
	}
	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{node: &roots[i], prefix: fmt.Sprintf("%s.nodes[%d]", modelPrefix, i)})
	}

	instanceIDs := make(map[string]string)
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := it.node

		if n.InstanceID != "" {
			if first, ok := instanceIDs[n.InstanceID]; ok {
				errs = append(errs, fmt.Errorf("%s.instance_id: duplicate %q (first at %s)", it.prefix, n.InstanceID, first))
			} else {
				instanceIDs[n.InstanceID] = it.prefix
			}
		}

		for j, p := range n.Properties {
			pp := fmt.Sprintf("%s.properties[%d]", it.prefix, j)
			if strings.TrimSpace(p.Category) == "" {
				errs = append(errs, fmt.Errorf("%s.category is required", pp))
			}
			if strings.TrimSpace(p.Name) == "" {
				errs = append(errs, fmt.Errorf("%s.name is required", pp))
			}
		}

		for j := len(n.Children) - 1; j >= 0; j-- {
			stack = append(stack, item{node: &n.Children[j], prefix: fmt.Sprintf("%s.children[%d]", it.prefix, j)})
		}
	}

	return errs
}
