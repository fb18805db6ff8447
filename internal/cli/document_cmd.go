package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alexanderramin/awp4d/internal/cli/formatter"
	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/spf13/cobra"
)

func newImportModelCmd(a *App) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import-model FILE",
		Short: "Load a model export (JSON) into the document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if replace {
				removed, err := a.Import.ResetModel(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s models\n", formatter.Count(removed))
			}
			res, err := a.Import.ImportModel(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %s models, %s nodes, %s properties\n",
				formatter.Count(res.Models), formatter.Count(res.Nodes), formatter.Count(res.Properties))
			return nil
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Remove the loaded models first")
	return cmd
}

func newTasksCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect the document's task list",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.Tasks.ListTasks(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTaskList(tasks))
			return nil
		},
	}

	find := &cobra.Command{
		Use:   "find SYNCID",
		Short: "Show the task carrying a sync id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.Tasks.FindBySyncID(cmd.Context(), args[0])
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("no task with sync id %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTask(t))
			return nil
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Count linked and unlinked tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.Tasks.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTaskLinkSummary(s))
			return nil
		},
	}

	cmd.AddCommand(list, find, summary)
	return cmd
}

func newSetsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Inspect selection sets",
	}

	var flags optionFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Show the selection set tree under the root folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(a)
			if err != nil {
				return err
			}
			entries, err := a.Sets.ListSets(cmd.Context(), opts.SelectionSetRootFolder)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSelectionTree(entries))
			return nil
		},
	}
	flags.register(list)

	cmd.AddCommand(list)
	return cmd
}

func newPropsCmd(a *App) *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "props NODE_KEY",
		Short: "Show the schedule properties written on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid node key %q", args[0])
			}
			opts, err := flags.resolve(a)
			if err != nil {
				return err
			}
			cat, err := a.Writer.ReadScheduleProperties(cmd.Context(), key, opts.PropertyCategoryInternalName)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("node %d has no %s properties", key, opts.PropertyCategoryName)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCategory(key, cat))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newClearCmd(a *App) *cobra.Command {
	var (
		flags      optionFlags
		sets, task bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove generated selection sets and tasks",
		Long:  "Remove the selection sets and tasks under the configured root folders.\nWith neither --sets nor --tasks both are removed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(a)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !sets && !task {
				rep, err := a.Pipeline.ClearExistingData(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s selection items and %s tasks\n",
					formatter.Count(rep.SelectionItems), formatter.Count(rep.Tasks))
				return nil
			}
			if sets {
				n, err := a.Sets.ClearSelectionSets(ctx, opts.SelectionSetRootFolder)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s selection items\n", formatter.Count(n))
			}
			if task {
				n, err := a.Tasks.ClearTasks(ctx, opts.TaskRootFolder)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %s tasks\n", formatter.Count(n))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&sets, "sets", false, "Remove selection sets only")
	cmd.Flags().BoolVar(&task, "tasks", false, "Remove tasks only")
	return cmd
}
