package app

import (
	"fmt"

	"github.com/alexanderramin/awp4d/internal/progress"
)

// PipelineStage is a state of the orchestrator state machine.
type PipelineStage string

const (
	StagePending           PipelineStage = "Pending"
	StageValidating        PipelineStage = "Validating"
	StageParsingCsv        PipelineStage = "ParsingCsv"
	StageMatching          PipelineStage = "Matching"
	StageWritingProperties PipelineStage = "WritingProperties"
	StageCreatingGroups    PipelineStage = "CreatingGroups"
	StageCreatingTasks     PipelineStage = "CreatingTasks"
	StagePostValidating    PipelineStage = "PostValidating"
	StageComplete          PipelineStage = "Complete"
	StageFailed            PipelineStage = "Failed"
	StageCancelled         PipelineStage = "Cancelled"
)

type stageInfo struct {
	order    int
	optional bool
	percent  int
	tag      progress.Stage
}

var stages = map[PipelineStage]stageInfo{
	StagePending:           {order: 0, percent: 0, tag: progress.StageValidation},
	StageValidating:        {order: 1, optional: true, percent: 0, tag: progress.StageValidation},
	StageParsingCsv:        {order: 2, percent: 5, tag: progress.StageCsvParsing},
	StageMatching:          {order: 3, percent: 15, tag: progress.StageObjectMatching},
	StageWritingProperties: {order: 4, optional: true, percent: 30, tag: progress.StagePropertyWrite},
	StageCreatingGroups:    {order: 5, optional: true, percent: 50, tag: progress.StageSelectionSets},
	StageCreatingTasks:     {order: 6, optional: true, percent: 70, tag: progress.StageTaskCreation},
	StagePostValidating:    {order: 7, optional: true, percent: 90, tag: progress.StagePostValidation},
	StageComplete:          {order: 8, percent: 100, tag: progress.StageComplete},
}

// orderedStages lists the forward path in order.
var orderedStages = []PipelineStage{
	StagePending,
	StageValidating,
	StageParsingCsv,
	StageMatching,
	StageWritingProperties,
	StageCreatingGroups,
	StageCreatingTasks,
	StagePostValidating,
	StageComplete,
}

// IsTerminal reports whether no further transition is possible.
func (s PipelineStage) IsTerminal() bool {
	switch s {
	case StageComplete, StageFailed, StageCancelled:
		return true
	default:
		return false
	}
}

// Percentage is the overall progress reported when the stage starts.
func (s PipelineStage) Percentage() int {
	return stages[s].percent
}

// Tag is the progress/log tag for the stage.
func (s PipelineStage) Tag() progress.Stage {
	if info, ok := stages[s]; ok {
		return info.tag
	}
	return progress.StageComplete
}

// CanTransition reports whether from -> to is allowed. Failed and Cancelled
// are reachable from any non-terminal stage. Forward moves may skip only
// optional stages, which is how disabled stages and dry runs are expressed.
func CanTransition(from, to PipelineStage) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StageFailed || to == StageCancelled {
		return true
	}
	fi, ok := stages[from]
	if !ok {
		return false
	}
	ti, ok := stages[to]
	if !ok || ti.order <= fi.order {
		return false
	}
	for _, between := range orderedStages[fi.order+1 : ti.order] {
		if !stages[between].optional {
			return false
		}
	}
	return true
}

// Transition validates from -> to and returns to, or an error.
func Transition(from, to PipelineStage) (PipelineStage, error) {
	if !CanTransition(from, to) {
		return from, fmt.Errorf("disallowed stage transition: %s -> %s", from, to)
	}
	return to, nil
}
