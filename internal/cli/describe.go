package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"katari/internal/app"
	"katari/internal/config"
	"katari/internal/model"
)

func newDescribeCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <reports.csv>",
		Short: "Capture and describe every report in a manifest",
		Long: `Describe reads a CSV manifest with name, url and description columns,
opens each report in a browser session, waits for loading to settle,
captures every dashboard page and writes a generated description plus
the raw artifacts to the output directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := st.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}
			applyDescribeFlags(cmd, cfg)

			requests, err := model.ReadManifest(args[0])
			if err != nil {
				return err
			}
			if len(requests) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "manifest %s has no reports\n", args[0])
				return nil
			}

			fl := cmd.Flags()
			reauth, _ := fl.GetBool("reauth")
			captureOnly, _ := fl.GetBool("capture-only")
			skipUnchanged, _ := fl.GetBool("skip-unchanged")
			opts := app.RunOptions{
				Reauth:        reauth,
				CaptureOnly:   captureOnly,
				SkipUnchanged: skipUnchanged,
			}

			comps, err := app.NewComponents(ctx, cfg, opts, st.logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			orch := app.NewOrchestrator(comps, opts, st.logger)

			done := make(chan struct{})
			go func() {
				defer close(done)
				printProgress(cmd.OutOrStdout(), orch.Events())
			}()

			summary, runErr := orch.Run(ctx, args[0], requests)
			<-done
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary)
			}
			if runErr != nil {
				return runErr
			}
			if _, _, failed, _ := summary.Counts(); failed > 0 {
				return fmt.Errorf("%d of %d reports failed", failed, len(summary.Results))
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.Bool("reauth", false, "discard saved auth state and log in again before the run")
	fl.Bool("capture-only", false, "write screenshots and HTML but skip description generation")
	fl.Bool("skip-unchanged", false, "reuse the stored description when a report has not drifted")
	fl.StringP("output", "o", "output", "artifact directory")
	fl.String("catalog", "", "catalog database path (default <output>/katari.db)")
	fl.Duration("max-wait", 60*time.Second, "readiness deadline per dashboard page")
	fl.Duration("settle", 2*time.Second, "quiet period before a page counts as ready")
	fl.Duration("poll", 500*time.Millisecond, "loading-indicator polling interval")
	fl.Bool("headless", true, "run the capture browser headless; set to false to watch it")
	return cmd
}

// applyDescribeFlags folds set flags over the env-derived configuration.
// Flags beat env, env beats defaults; an untouched flag changes nothing.
func applyDescribeFlags(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("output") {
		cfg.Output.Dir, _ = fl.GetString("output")
	}
	if fl.Changed("catalog") {
		cfg.Output.CatalogPath, _ = fl.GetString("catalog")
	}
	if fl.Changed("max-wait") {
		cfg.Detector.MaxWait, _ = fl.GetDuration("max-wait")
	}
	if fl.Changed("settle") {
		cfg.Detector.SettleDelay, _ = fl.GetDuration("settle")
	}
	if fl.Changed("poll") {
		cfg.Detector.PollInterval, _ = fl.GetDuration("poll")
	}
	if fl.Changed("headless") {
		cfg.Browser.Headless, _ = fl.GetBool("headless")
	}
}

// printProgress renders run events as per-report progress lines. Logs go to
// stderr, so stdout stays a clean report-per-line record of the run.
func printProgress(w io.Writer, events <-chan app.RunEvent) {
	for ev := range events {
		switch ev.Type {
		case app.EventReportStarted:
			fmt.Fprintf(w, "[%d/%d] %s ...\n", ev.Index, ev.Total, ev.Report)
		case app.EventReportFinished:
			if ev.Error != "" {
				fmt.Fprintf(w, "[%d/%d] %s ... %s: %s\n", ev.Index, ev.Total, ev.Report, ev.Status, ev.Error)
			} else {
				fmt.Fprintf(w, "[%d/%d] %s ... %s\n", ev.Index, ev.Total, ev.Report, ev.Status)
			}
		}
	}
}

func printSummary(w io.Writer, s *model.RunSummary) {
	succeeded, partial, failed, skipped := s.Counts()
	fmt.Fprintf(w, "\nrun %s: %d succeeded, %d partial, %d failed, %d skipped in %s\n",
		s.RunID, succeeded, partial, failed, skipped,
		s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond))
}
