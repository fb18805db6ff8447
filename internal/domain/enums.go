package domain

type MatchStatus string

const (
	MatchUnmatched MatchStatus = "unmatched"
	MatchMatched   MatchStatus = "matched"
	MatchNotFound  MatchStatus = "not_found"
	MatchError     MatchStatus = "error"
)

type TaskType string

const (
	TaskConstruct TaskType = "Construct"
	TaskDemolish  TaskType = "Demolish"
	TaskTemporary TaskType = "Temporary"
)

// Valid reports whether t is one of the closed set of simulation task types.
func (t TaskType) Valid() bool {
	switch t {
	case TaskConstruct, TaskDemolish, TaskTemporary:
		return true
	}
	return false
}

type GroupingStrategy string

const (
	GroupByParentSet    GroupingStrategy = "by_parent_set"
	GroupByZone         GroupingStrategy = "by_zone"
	GroupByZoneAndLevel GroupingStrategy = "by_zone_and_level"
	GroupByTaskName     GroupingStrategy = "by_task_name"
	GroupByStartWeek    GroupingStrategy = "by_start_week"
	GroupByTaskType     GroupingStrategy = "by_task_type"
	GroupNone           GroupingStrategy = "none"
)

// GroupingStrategies lists every supported strategy in presentation order.
var GroupingStrategies = []GroupingStrategy{
	GroupByParentSet,
	GroupByZone,
	GroupByZoneAndLevel,
	GroupByTaskName,
	GroupByStartWeek,
	GroupByTaskType,
	GroupNone,
}

type LinkMode string

const (
	LinkSelectionSet LinkMode = "selection_set"
	LinkExplicit     LinkMode = "explicit"
	LinkSearch       LinkMode = "search"
)

type IdentitySource string

const (
	IdentityNative    IdentitySource = "native"
	IdentityItemGUID  IdentitySource = "item_guid"
	IdentityAuthoring IdentitySource = "authoring"
	IdentityHierarchy IdentitySource = "hierarchy"
)

type SelectionKind string

const (
	SelectionFolder SelectionKind = "folder"
	SelectionSet    SelectionKind = "set"
)

type TaskNodeKind string

const (
	TaskNodeFolder TaskNodeKind = "folder"
	TaskNodeTask   TaskNodeKind = "task"
)

type ValueType string

const (
	ValueString ValueType = "string"
	ValueInt    ValueType = "int"
	ValueFloat  ValueType = "float"
)
