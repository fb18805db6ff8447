package cli

import (
	"fmt"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/config"
	"github.com/alexanderramin/awp4d/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// optionFlags selects the base options of a command.
type optionFlags struct {
	preset  string
	profile string
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "Options preset (default|dry-run|production)")
	cmd.Flags().StringVar(&f.profile, "options", "", "YAML options profile")
	cmd.MarkFlagsMutuallyExclusive("preset", "options")
}

// resolve picks the base options: --options, then --preset, then the
// configured profile, then the App options, then the default preset.
func (f *optionFlags) resolve(a *App) (app.PipelineOptions, error) {
	switch {
	case f.profile != "":
		return config.LoadOptionsFile(f.profile)
	case f.preset != "":
		return app.Preset(f.preset)
	case a.OptionsPath != "":
		return config.LoadOptionsFile(a.OptionsPath)
	case a.Options != nil:
		return *a.Options, nil
	}
	return app.DefaultOptions(), nil
}

// runFlags are the per-run overrides of the run command. Only flags the
// user set are applied.
type runFlags struct {
	optionFlags
	dryRun      bool
	grouping    string
	linkMode    string
	minMatch    float64
	stopOnError bool
	noProps     bool
	noSets      bool
	noTasks     bool
	flat        bool
	noPre       bool
	noPost      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	f.optionFlags.register(cmd)
	f.bind(cmd.Flags())
}

func (f *runFlags) bind(fs *pflag.FlagSet) {
	fs.BoolVar(&f.dryRun, "dry-run", false, "Parse and match only; write nothing")
	fs.StringVar(&f.grouping, "grouping", "", "Grouping strategy (by_parent_set|by_zone|by_zone_and_level|by_task_name|by_start_week|by_task_type|none)")
	fs.StringVar(&f.linkMode, "link-mode", "", "Task link mode (selection_set|explicit|search)")
	fs.Float64Var(&f.minMatch, "min-match", 0, "Minimum match success rate in percent")
	fs.BoolVar(&f.stopOnError, "stop-on-error", false, "Stop on the first failure")
	fs.BoolVar(&f.noProps, "no-props", false, "Skip property writes")
	fs.BoolVar(&f.noSets, "no-sets", false, "Skip selection set creation")
	fs.BoolVar(&f.noTasks, "no-tasks", false, "Skip task creation")
	fs.BoolVar(&f.flat, "flat", false, "Create tasks without folders")
	fs.BoolVar(&f.noPre, "no-pre-validation", false, "Skip pre-validation")
	fs.BoolVar(&f.noPost, "no-post-validation", false, "Skip post-validation")
}

// apply resolves the base options and overlays the flags changed in fs.
func (f *runFlags) apply(fs *pflag.FlagSet, a *App) (app.PipelineOptions, error) {
	opts, err := f.optionFlags.resolve(a)
	if err != nil {
		return app.PipelineOptions{}, err
	}
	changed := fs.Changed

	if changed("dry-run") && f.dryRun {
		opts.DryRun = true
		opts.EnablePropertyWrite = false
		opts.EnableSelectionSets = false
		opts.EnableTaskCreation = false
	}
	if changed("grouping") {
		opts.GroupingStrategy = domain.GroupingStrategy(f.grouping)
	}
	if changed("link-mode") {
		opts.LinkMode = domain.LinkMode(f.linkMode)
	}
	if changed("min-match") {
		opts.MinMatchSuccessRate = f.minMatch
	}
	if changed("stop-on-error") {
		opts.ContinueOnError = !f.stopOnError
	}
	if changed("no-props") {
		opts.EnablePropertyWrite = !f.noProps
	}
	if changed("no-sets") {
		opts.EnableSelectionSets = !f.noSets
	}
	if changed("no-tasks") {
		opts.EnableTaskCreation = !f.noTasks
	}
	if changed("flat") {
		opts.HierarchicalTasks = !f.flat
	}
	if changed("no-pre-validation") {
		opts.EnablePreValidation = !f.noPre
	}
	if changed("no-post-validation") {
		opts.EnablePostValidation = !f.noPost
	}

	if err := opts.Validate(); err != nil {
		return app.PipelineOptions{}, fmt.Errorf("resolving options: %w", err)
	}
	return opts, nil
}
