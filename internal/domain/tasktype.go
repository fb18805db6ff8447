package domain

import "strings"

var exactTaskTypes = map[string]TaskType{
	"construct":    TaskConstruct,
	"construction": TaskConstruct,
	"demolish":     TaskDemolish,
	"demolition":   TaskDemolish,
	"temporary":    TaskTemporary,
	"temp":         TaskTemporary,
	"시공":           TaskConstruct,
	"설치":           TaskConstruct,
	"철거":           TaskDemolish,
	"해체":           TaskDemolish,
	"가설":           TaskTemporary,
	"임시":           TaskTemporary,
}

// Keyword order matters: "temp" must be checked before the construct set so
// "temporary construction" stays temporary.
var taskTypeKeywords = []struct {
	keywords []string
	taskType TaskType
}{
	{[]string{"demol", "remov", "철거", "해체", "제거"}, TaskDemolish},
	{[]string{"temp", "임시", "가설"}, TaskTemporary},
	{[]string{"build", "construct", "시공", "설치", "조립"}, TaskConstruct},
}

// ParseTaskType normalizes a free-form task type. Exact English and native
// terms are tried first, then keyword substrings. Unrecognized input yields
// Construct.
func ParseTaskType(s string) TaskType {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return TaskConstruct
	}
	if t, ok := exactTaskTypes[v]; ok {
		return t
	}
	for _, group := range taskTypeKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(v, kw) {
				return group.taskType
			}
		}
	}
	return TaskConstruct
}
