package cli

import (
	"fmt"

	"github.com/alexanderramin/awp4d/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate CSV",
		Short: "Check a schedule file without touching the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := a.Pipeline.ValidateCsv(cmd.Context(), args[0])
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatValidation("Schedule "+args[0], res))
			return res.Err()
		},
	}
}

func newPreviewCmd(a *App) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "preview CSV",
		Short: "Show the column mapping and first rows of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows < 0 {
				return fmt.Errorf("--rows must not be negative")
			}
			p, err := a.Pipeline.PreviewCsv(cmd.Context(), args[0], rows)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPreview(p))
			return nil
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 10, "Number of data rows to show")
	return cmd
}

func newMatchCmd(a *App) *cobra.Command {
	var flags optionFlags

	cmd := &cobra.Command{
		Use:   "match CSV",
		Short: "Trial-match a schedule against the model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(a)
			if err != nil {
				return err
			}
			m, err := a.Pipeline.TestMatching(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatMatchPreview(m))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newDoctorCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report what the loaded model document holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep := a.Pipeline.ValidateEnvironment(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatEnvironment(rep))
			return rep.Validation.Err()
		},
	}
}
