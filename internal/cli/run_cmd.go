package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/alexanderramin/awp4d/internal/app"
	"github.com/alexanderramin/awp4d/internal/cli/formatter"
	"github.com/alexanderramin/awp4d/internal/progress"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	progressWidth  = 24
	progressBuffer = 32
)

func newRunCmd(a *App) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run CSV",
		Short: "Run the schedule pipeline against the loaded model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.apply(cmd.Flags(), a)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			req := app.PipelineRequest{CSVPath: args[0], Options: opts}
			out := cmd.OutOrStdout()

			var res *app.PipelineResult
			if a.interactive() {
				res, err = runWithProgress(ctx, a, req, out)
				if err != nil {
					return err
				}
			} else {
				res = a.Pipeline.Run(ctx, req)
			}

			a.logger().Info("pipeline run finished",
				"csv", req.CSVPath, "stage", res.Stage, "options", res.OptionsHash, "elapsed", res.Elapsed())
			fmt.Fprintln(out, formatter.FormatPipelineResult(res))
			if !res.Success {
				if res.Err != nil {
					return res.Err
				}
				return fmt.Errorf("%s", res.Summary())
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// runWithProgress runs the pipeline while a second goroutine renders its
// phase events. The item line is redrawn in place.
func runWithProgress(ctx context.Context, a *App, req app.PipelineRequest, out io.Writer) (*app.PipelineResult, error) {
	ch := progress.NewChannel(progressBuffer)
	req.Progress = ch

	var res *app.PipelineResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer ch.Close()
		res = a.Pipeline.Run(gctx, req)
		return nil
	})
	g.Go(func() error {
		renderProgress(out, ch)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func renderProgress(out io.Writer, ch *progress.Channel) {
	phases, items := ch.Phases(), ch.ItemEvents()
	itemShown := false
	for phases != nil || items != nil {
		select {
		case p, ok := <-phases:
			if !ok {
				phases = nil
				continue
			}
			if itemShown {
				fmt.Fprint(out, "\r\033[K")
				itemShown = false
			}
			fmt.Fprintln(out, formatter.PhaseLine(p, progressWidth))
		case i, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			fmt.Fprint(out, "\r\033[K"+formatter.ItemLine(i))
			itemShown = true
		}
	}
	if itemShown {
		fmt.Fprint(out, "\r\033[K")
	}
}
