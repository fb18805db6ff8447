package cli

import (
	"log/slog"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/identity"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/alexanderramin/awp4d/internal/service"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Pipeline service.PipelineService
	Import   service.ModelImportService
	Tasks    service.TaskService
	Sets     service.SelectionSetService
	Writer   service.PropertyWriteService

	// Options are the base pipeline options before a profile or flags
	// are applied. Zero means the default preset.
	Options *app.PipelineOptions
	// OptionsPath is a profile file used when --options is not given.
	OptionsPath string

	// IsInteractive reports whether output goes to a terminal. Nil means
	// non-interactive.
	IsInteractive func() bool

	Logger *slog.Logger
}

// NewSessionApp wires every service onto one model session. The inspection
// services share one resolver; the pipeline keeps its own.
func NewSessionApp(session *repository.ModelSession, logger *slog.Logger, opts ...service.Option) *App {
	opts = append([]service.Option{service.WithLogger(logger)}, opts...)
	resolver := identity.NewResolver(session.Tree, identity.WithLogger(logger))
	return &App{
		Pipeline: service.NewPipelineService(session, nil, opts...),
		Import:   service.NewModelImportService(session.Tree, session.UoW, opts...),
		Tasks:    service.NewTaskService(session.Tasks, session.Selections, resolver, opts...),
		Sets:     service.NewSelectionSetService(session.Selections, resolver, opts...),
		Writer:   service.NewPropertyWriteService(session.Properties, resolver, opts...),
		Logger:   logger,
	}
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.Logger
}

// NewRootCmd creates the top-level "awp4d" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "awp4d",
		Short:         "Link construction schedules to model objects",
		Long:          "awp4d reads a schedule CSV, matches every row to a model object by sync id,\nwrites schedule properties, and builds selection sets and 4D tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newImportModelCmd(app),
		newRunCmd(app),
		newValidateCmd(app),
		newPreviewCmd(app),
		newMatchCmd(app),
		newDoctorCmd(app),
		newTasksCmd(app),
		newSetsCmd(app),
		newPropsCmd(app),
		newClearCmd(app),
	)

	return root
}
