package schedule

import "strings"

// Field is a canonical schedule column.
type Field string

const (
	FieldSyncID       Field = "SyncID"
	FieldTaskName     Field = "TaskName"
	FieldPlannedStart Field = "PlannedStartDate"
	FieldPlannedEnd   Field = "PlannedEndDate"
	FieldActualStart  Field = "ActualStartDate"
	FieldActualEnd    Field = "ActualEndDate"
	FieldCost         Field = "Cost"
	FieldDuration     Field = "Duration"
	FieldProgress     Field = "Progress"
	FieldTaskType     Field = "TaskType"
	FieldSetLevel     Field = "SetLevel"
	FieldParentSet    Field = "ParentSet"
)

// columnSynonyms maps each canonical field to every header spelling
// accepted for it, Korean and English.
var columnSynonyms = map[Field][]string{
	FieldSyncID:       {"SyncID", "동기화ID", "동기화 ID", "Sync ID", "ID", "객체ID", "ElementId", "Element ID", "UniqueId"},
	FieldTaskName:     {"TaskName", "작업명", "작업 이름", "Task Name", "Name", "이름", "공정명"},
	FieldPlannedStart: {"PlannedStartDate", "계획시작일", "계획 시작일", "Planned Start", "Start Date", "StartDate", "시작일", "시작", "Start"},
	FieldPlannedEnd:   {"PlannedEndDate", "계획종료일", "계획 종료일", "Planned End", "Planned Finish", "End Date", "EndDate", "종료일", "종료", "End", "Finish"},
	FieldActualStart:  {"ActualStartDate", "실제시작일", "실제 시작일", "Actual Start"},
	FieldActualEnd:    {"ActualEndDate", "실제종료일", "실제 종료일", "Actual End", "Actual Finish"},
	FieldCost:         {"Cost", "비용", "금액", "예산"},
	FieldDuration:     {"Duration", "DurationDays", "기간", "공기"},
	FieldProgress:     {"Progress", "진행률", "진행", "완료율", "Percent"},
	FieldTaskType:     {"TaskType", "작업유형", "작업 유형", "Task Type", "Type", "유형", "SimulationType"},
	FieldSetLevel:     {"SetLevel", "그룹레벨", "그룹 레벨", "Level", "레벨", "GroupLevel"},
	FieldParentSet:    {"ParentSet", "상위그룹", "상위 그룹", "Parent", "부모", "Zone", "영역"},
}

var headerIndex = buildHeaderIndex()

func buildHeaderIndex() map[string]Field {
	idx := make(map[string]Field)
	for field, names := range columnSynonyms {
		for _, n := range names {
			idx[normalizeHeader(n)] = field
		}
	}
	return idx
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// Synonyms returns the accepted header spellings for a field.
func Synonyms(f Field) []string {
	return append([]string(nil), columnSynonyms[f]...)
}

// CanonicalField maps a raw header to its canonical field.
func CanonicalField(header string) (Field, bool) {
	f, ok := headerIndex[normalizeHeader(header)]
	return f, ok
}

// columnMap is the resolved layout of one file's header row.
type columnMap struct {
	fields  map[Field]int
	custom  []customColumn
	headers []string
}

type customColumn struct {
	index  int
	header string
}

// mapHeader resolves headers. The first occurrence of a canonical field
// wins; later duplicates are ignored entirely.
func mapHeader(headers []string) columnMap {
	cm := columnMap{fields: make(map[Field]int), headers: headers}
	for i, h := range headers {
		f, ok := CanonicalField(h)
		if !ok {
			if name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")); name != "" {
				cm.custom = append(cm.custom, customColumn{index: i, header: name})
			}
			continue
		}
		if _, seen := cm.fields[f]; seen {
			continue
		}
		cm.fields[f] = i
	}
	return cm
}

func (cm columnMap) has(f Field) bool {
	_, ok := cm.fields[f]
	return ok
}

func (cm columnMap) value(cells []string, f Field) string {
	i, ok := cm.fields[f]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}
