package importer

import (
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/google/uuid"
)

// Document is a converted import ready for persistence.
type Document struct {
	Models []ConvertedModel
}

type ConvertedModel struct {
	Model domain.Model
	// Nodes are in pre-order; a parent always precedes its children.
	Nodes []ConvertedNode
}

type ConvertedNode struct {
	Node domain.ModelNode
	// Parent indexes into the model's Nodes, or is -1 for a root.
	Parent     int
	Properties []domain.PropertyCategory
}

// Base offsets positions and ordinals when appending to a loaded document.
type Base struct {
	ModelPosition int
	Ordinal       int
}

// NodeCount returns the number of nodes across all models.
func (d *Document) NodeCount() int {
	n := 0
	for _, m := range d.Models {
		n += len(m.Nodes)
	}
	return n
}

// PropertyCount returns the number of property values across all nodes.
func (d *Document) PropertyCount() int {
	n := 0
	for _, m := range d.Models {
		for _, cn := range m.Nodes {
			for _, c := range cn.Properties {
				n += len(c.Properties)
			}
		}
	}
	return n
}

// Convert transforms a validated ImportSchema into domain objects ready for persistence.
// Call ValidateImportSchema first; Convert assumes the schema is valid.
func Convert(schema *ImportSchema, base Base) *Document {
	doc := &Document{Models: make([]ConvertedModel, 0, len(schema.Models))}
	ordinal := base.Ordinal

	for i, m := range schema.Models {
		cm := ConvertedModel{Model: domain.Model{
			ID:         uuid.New().String(),
			SourceGUID: m.SourceGUID,
			FileName:   m.FileName,
			Position:   base.ModelPosition + i,
		}}

		type item struct {
			node     *NodeImport
			parent   int
			position int
		}
		stack := make([]item, 0, len(m.Nodes))
		for j := len(m.Nodes) - 1; j >= 0; j-- {
			stack = append(stack, item{node: &m.Nodes[j], parent: -1, position: j})
		}
		for len(stack) > 0 {
			it := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			hasGeometry := true
			if it.node.HasGeometry != nil {
				hasGeometry = *it.node.HasGeometry
			}
			idx := len(cm.Nodes)
			cm.Nodes = append(cm.Nodes, ConvertedNode{
				Node: domain.ModelNode{
					ModelID:     cm.Model.ID,
					Position:    it.position,
					Ordinal:     ordinal,
					DisplayName: it.node.Name,
					ClassName:   it.node.ClassName,
					InstanceID:  it.node.InstanceID,
					Hidden:      it.node.Hidden,
					HasGeometry: hasGeometry,
				},
				Parent:     it.parent,
				Properties: groupProperties(it.node.Properties),
			})
			ordinal++

			for j := len(it.node.Children) - 1; j >= 0; j-- {
				stack = append(stack, item{node: &it.node.Children[j], parent: idx, position: j})
			}
		}
		doc.Models = append(doc.Models, cm)
	}

	return doc
}

// groupProperties gathers flat property rows into categories in first-seen
// order.
func groupProperties(props []PropertyImport) []domain.PropertyCategory {
	if len(props) == 0 {
		return nil
	}
	var cats []domain.PropertyCategory
	index := make(map[[2]string]int)
	for _, p := range props {
		k := [2]string{p.Category, p.CategoryInternal}
		i, ok := index[k]
		if !ok {
			i = len(cats)
			index[k] = i
			cats = append(cats, domain.PropertyCategory{Name: p.Category, InternalName: p.CategoryInternal})
		}
		cats[i].Properties = append(cats[i].Properties, domain.Property{
			Name:         p.Name,
			InternalName: p.InternalName,
			Value:        p.Value,
			ReadOnly:     p.ReadOnly,
		})
	}
	return cats
}
