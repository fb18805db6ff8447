package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/hashstructure/v2"
)

// PipelineOptions is the configuration snapshot for one pipeline run.
// The orchestrator copies it on entry; later changes do not affect a run.
type PipelineOptions struct {
	// Execution policy
	EnablePreValidation  bool          `yaml:"enable_pre_validation"`
	EnablePostValidation bool          `yaml:"enable_post_validation"`
	MinMatchSuccessRate  float64       `yaml:"min_match_success_rate" validate:"gte=0,lte=100"`
	ContinueOnError      bool          `yaml:"continue_on_error"`
	DryRun               bool          `yaml:"dry_run"`
	BatchSize            int           `yaml:"batch_size" validate:"min=1,max=10000"`
	RetryCount           int           `yaml:"retry_count" validate:"min=0,max=10"`
	RetryDelay           time.Duration `yaml:"retry_delay" validate:"gte=0"`
	SlowRunThreshold     time.Duration `yaml:"slow_run_threshold" validate:"gte=0"`

	// Property write
	EnablePropertyWrite          bool   `yaml:"enable_property_write"`
	PropertyCategoryName         string `yaml:"property_category_name" validate:"required"`
	PropertyCategoryInternalName string `yaml:"property_category_internal_name" validate:"required"`

	// Matching
	MatchPropertyCategory string `yaml:"match_property_category" validate:"required"`
	MatchPropertyName     string `yaml:"match_property_name" validate:"required"`
	IgnoreCaseInMatching  bool   `yaml:"ignore_case_in_matching"`
	AllowMultipleMatches  bool   `yaml:"allow_multiple_matches"`
	UseMatchCache         bool   `yaml:"use_match_cache"`
	CacheThreshold        int    `yaml:"cache_threshold" validate:"gte=0"`

	// Selection sets
	EnableSelectionSets    bool                    `yaml:"enable_selection_sets"`
	GroupingStrategy       domain.GroupingStrategy `yaml:"grouping_strategy" validate:"oneof=by_parent_set by_zone by_zone_and_level by_task_name by_start_week by_task_type none"`
	SelectionSetRootFolder string                  `yaml:"selection_set_root_folder" validate:"required"`
	SkipEmptySelectionSets bool                    `yaml:"skip_empty_selection_sets"`

	// Tasks
	EnableTaskCreation bool            `yaml:"enable_task_creation"`
	TaskRootFolder     string          `yaml:"task_root_folder" validate:"required"`
	HierarchicalTasks  bool            `yaml:"hierarchical_tasks"`
	DefaultTaskType    domain.TaskType `yaml:"default_task_type" validate:"oneof=Construct Demolish Temporary"`
	LinkMode           domain.LinkMode `yaml:"link_mode" validate:"oneof=selection_set explicit search"`
}

// DefaultOptions returns the standard production-safe defaults.
func DefaultOptions() PipelineOptions {
	return PipelineOptions{
		EnablePreValidation:  true,
		EnablePostValidation: true,
		MinMatchSuccessRate:  80,
		ContinueOnError:      true,
		BatchSize:            100,
		RetryCount:           3,
		RetryDelay:           500 * time.Millisecond,
		SlowRunThreshold:     5 * time.Minute,

		EnablePropertyWrite:          true,
		PropertyCategoryName:         "AWP Schedule",
		PropertyCategoryInternalName: "AWP_Schedule",

		MatchPropertyCategory: "Element",
		MatchPropertyName:     "Id",
		IgnoreCaseInMatching:  true,
		UseMatchCache:         true,
		CacheThreshold:        100,

		EnableSelectionSets:    true,
		GroupingStrategy:       domain.GroupByParentSet,
		SelectionSetRootFolder: "AWP 4D Sets",
		SkipEmptySelectionSets: true,

		EnableTaskCreation: true,
		TaskRootFolder:     "AWP 4D Tasks",
		HierarchicalTasks:  true,
		DefaultTaskType:    domain.TaskConstruct,
		LinkMode:           domain.LinkSelectionSet,
	}
}

// DryRunOptions parses and matches only.
func DryRunOptions() PipelineOptions {
	o := DefaultOptions()
	o.DryRun = true
	o.EnablePropertyWrite = false
	o.EnableSelectionSets = false
	o.EnableTaskCreation = false
	return o
}

// ProductionOptions stops on the first failure and demands a higher match rate.
func ProductionOptions() PipelineOptions {
	o := DefaultOptions()
	o.ContinueOnError = false
	o.MinMatchSuccessRate = 90
	o.BatchSize = 500
	o.RetryCount = 5
	return o
}

// Preset returns named options: default, dry-run, production.
func Preset(name string) (PipelineOptions, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultOptions(), nil
	case "dry-run", "dryrun":
		return DryRunOptions(), nil
	case "production", "prod":
		return ProductionOptions(), nil
	}
	return PipelineOptions{}, fmt.Errorf("unknown preset %q (expected default|dry-run|production)", name)
}

var optionsValidator = newOptionsValidator()

func newOptionsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateOptionCombinations, PipelineOptions{})
	return v
}

func validateOptionCombinations(sl validator.StructLevel) {
	o := sl.Current().Interface().(PipelineOptions)
	if o.EnableTaskCreation && o.LinkMode == domain.LinkSelectionSet && !o.EnableSelectionSets {
		sl.ReportError(o.LinkMode, "link_mode", "LinkMode", "requires_selection_sets", "")
	}
	if o.EnableTaskCreation && o.EnableSelectionSets &&
		strings.EqualFold(strings.TrimSpace(o.TaskRootFolder), strings.TrimSpace(o.SelectionSetRootFolder)) {
		sl.ReportError(o.TaskRootFolder, "task_root_folder", "TaskRootFolder", "distinct_roots", "")
	}
}

// Validate returns every option violation as one error wrapping ErrValidation.
func (o PipelineOptions) Validate() error {
	errs := o.ValidationErrors()
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("invalid options: %s: %w", strings.Join(msgs, "; "), ErrValidation)
}

// ValidationErrors lists each violation separately.
func (o PipelineOptions) ValidationErrors() []error {
	err := optionsValidator.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	out := make([]error, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, fmt.Errorf("%s: %s", e.Field(), describeViolation(e)))
	}
	return out
}

func describeViolation(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("%v is not one of [%s]", e.Value(), e.Param())
	case "min", "gte":
		return fmt.Sprintf("%v must be at least %s", e.Value(), e.Param())
	case "max", "lte":
		return fmt.Sprintf("%v must be at most %s", e.Value(), e.Param())
	case "requires_selection_sets":
		return "selection_set linking requires enable_selection_sets"
	case "distinct_roots":
		return "task and selection set root folders must differ"
	default:
		return fmt.Sprintf("failed %q", e.Tag())
	}
}

// Hash fingerprints the options so runs can be traced to a configuration.
func (o PipelineOptions) Hash() string {
	h, err := hashstructure.Hash(o, hashstructure.FormatV2, nil)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", h)
}
