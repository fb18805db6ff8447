package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Model is one loaded model file in the document.
type Model struct {
	ID         string
	SourceGUID string
	FileName   string
	Position   int
}

// ModelNode is a single addressable entity in the model tree.
type ModelNode struct {
	Key       int64
	ModelID   string
	ParentKey *int64

	// Position is the index among siblings (or among all roots for a root).
	Position int
	// Ordinal is the pre-order index across the whole document.
	Ordinal int

	DisplayName string
	ClassName   string
	InstanceID  string
	Hidden      bool
	HasGeometry bool
}

func (n *ModelNode) IsRoot() bool {
	return n.ParentKey == nil
}

// SortMatchCandidates orders ambiguous match results: native instance id
// ascending with empty ids last, then pre-order ordinal.
func SortMatchCandidates(nodes []ModelNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return CandidateLess(&nodes[i], &nodes[j])
	})
}

// CandidateLess is the ordering used by SortMatchCandidates.
func CandidateLess(a, b *ModelNode) bool {
	if (a.InstanceID == "") != (b.InstanceID == "") {
		return b.InstanceID == ""
	}
	if a.InstanceID != b.InstanceID {
		return a.InstanceID < b.InstanceID
	}
	return a.Ordinal < b.Ordinal
}

type Property struct {
	Name         string
	InternalName string
	Value        string
	ReadOnly     bool
}

type PropertyCategory struct {
	Name         string
	InternalName string
	Properties   []Property
}

// Matches reports whether the category is addressed by name, comparing both
// the display and internal names case-insensitively.
func (c PropertyCategory) Matches(name string) bool {
	return strings.EqualFold(c.Name, name) || (c.InternalName != "" && strings.EqualFold(c.InternalName, name))
}

// Lookup returns the value of a property by display or internal name.
func (c PropertyCategory) Lookup(name string) (string, bool) {
	for _, p := range c.Properties {
		if strings.EqualFold(p.Name, name) || (p.InternalName != "" && strings.EqualFold(p.InternalName, name)) {
			return p.Value, true
		}
	}
	return "", false
}

// FindProperty searches categories for category/name and returns the first
// non-empty value.
func FindProperty(categories []PropertyCategory, category, name string) (string, bool) {
	for _, c := range categories {
		if !c.Matches(category) {
			continue
		}
		if v, ok := c.Lookup(name); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// PropertyKey addresses a property by category and name.
type PropertyKey struct {
	Category string
	Name     string
}

// PropertyCondition is an equality search over one property.
type PropertyCondition struct {
	Category   string
	Name       string
	Value      string
	IgnoreCase bool
}

// FoldValue normalizes a property value for case-insensitive comparison.
// Both the store and the in-memory cache fold with this function.
func FoldValue(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// PropertyValue is a typed custom property value.
type PropertyValue struct {
	Type ValueType
	Raw  string
}

func StringValue(s string) PropertyValue {
	return PropertyValue{Type: ValueString, Raw: s}
}

func IntValue(i int) PropertyValue {
	return PropertyValue{Type: ValueInt, Raw: strconv.Itoa(i)}
}

func FloatValue(f float64) PropertyValue {
	return PropertyValue{Type: ValueFloat, Raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

type CustomProperty struct {
	InternalName string
	DisplayName  string
	Value        PropertyValue
}

// CustomCategory is a named group of custom properties written onto a node.
// A write replaces any category with the same internal name.
type CustomCategory struct {
	DisplayName  string
	InternalName string
	Properties   []CustomProperty
}

// Get returns a property by display name.
func (c *CustomCategory) Get(displayName string) (CustomProperty, bool) {
	for _, p := range c.Properties {
		if p.DisplayName == displayName {
			return p, true
		}
	}
	return CustomProperty{}, false
}
