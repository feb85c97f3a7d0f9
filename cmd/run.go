package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-research/internal/model"
	"github.com/sells-group/outreach-research/internal/pipeline"
)

var (
	runURLs        []string
	runFile        string
	runGenerate    bool
	runSender      string
	runNotes       string
	runSchema      string
	runMaxAttempts int
	runMetricsAddr string
	runFormat      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Research one or more company websites",
	Long: `Runs the research workflow for every target and prints the results.

Examples:
  # Single company, research only
  outreach-research run --url acme-gym.de

  # Many companies from a CSV, with outreach emails
  outreach-research run --file targets.csv --generate --sender sender.yaml --format text`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if runFormat != "json" && runFormat != "text" {
			return eris.Errorf("unknown --format %q (json, text)", runFormat)
		}

		targets, err := loadTargets(runURLs, runFile)
		if err != nil {
			return err
		}

		var sender *model.SenderConfig
		if runGenerate {
			if runSender == "" {
				return eris.New("--generate requires --sender")
			}
			if sender, err = loadSender(runSender); err != nil {
				return err
			}
		}

		maxAttempts := cfg.Workflow.MaxAttempts
		if cmd.Flags().Changed("max-attempts") {
			maxAttempts = runMaxAttempts
		}

		metricsAddr := cfg.Metrics.Addr
		if runMetricsAddr != "" {
			metricsAddr = runMetricsAddr
		}
		if metricsAddr != "" {
			stopMetrics := startMetricsServer(metricsAddr)
			defer stopMetrics()
		}

		env, err := initResearch(ctx, runSchema)
		if err != nil {
			return err
		}
		defer env.Close()

		// Persistence outlives a cancelled run so partial results are kept.
		persistCtx := context.WithoutCancel(ctx)

		run, err := env.Store.CreateRun(persistCtx, targets)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		log := zap.L().With(zap.String("run_id", run.ID))

		result, runErr := env.Pipeline.Run(ctx, targets, pipeline.Options{
			RunID:         run.ID,
			MaxAttempts:   maxAttempts,
			GenerateEmail: runGenerate,
			Sender:        sender,
			UserNotes:     runNotes,
			Progress: func(ev pipeline.ProgressEvent) {
				log.Info(ev.Step,
					zap.String("target", ev.TargetID),
					zap.String("state", string(ev.State)),
					zap.Int("attempts", ev.Attempts),
				)
			},
			OnResult: func(tr model.TargetResult) {
				if err := env.Store.SaveTargetResult(persistCtx, run.ID, tr); err != nil {
					log.Error("save target result failed", zap.String("target", tr.Target.ID()), zap.Error(err))
				}
			},
		})

		status, msg := runOutcome(ctx, runErr)
		if err := env.Store.UpdateRunStatus(persistCtx, run.ID, status, msg); err != nil {
			log.Error("update run status failed", zap.Error(err))
		}
		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		done, failed := result.Counts()
		log.Info("research complete",
			zap.Int("targets", len(result.Results)),
			zap.Int("done", done),
			zap.Int("failed", failed),
		)

		if runFormat == "text" {
			return writeRunText(os.Stdout, result)
		}
		return writeRunResult(os.Stdout, result)
	},
}

// runOutcome maps how the pipeline returned onto the stored run status.
func runOutcome(ctx context.Context, runErr error) (model.RunStatus, string) {
	switch {
	case runErr != nil:
		return model.RunStatusFailed, runErr.Error()
	case ctx.Err() != nil:
		return model.RunStatusFailed, "cancelled"
	default:
		return model.RunStatusComplete, ""
	}
}

// writeRunResult writes the run result as indented JSON.
func writeRunResult(w io.Writer, result *model.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// writeRunText writes a per-target summary with any rendered email.
func writeRunText(w io.Writer, result *model.RunResult) error {
	ids := make([]string, 0, len(result.Results))
	for id := range result.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		tr := result.Results[id]
		if _, err := fmt.Fprintf(w, "== %s [%s] attempts=%d transitions=%d\n", id, tr.State, tr.Attempts, tr.Transitions); err != nil {
			return err
		}
		if tr.Error != nil {
			fmt.Fprintf(w, "error: %s: %s\n", tr.Error.Category, tr.Error.Message)
		}
		if tr.Ads != nil {
			fmt.Fprintf(w, "ads: %s (%d total, %d active)\n", tr.Ads.Status, tr.Ads.Metrics.Total, tr.Ads.Metrics.Active)
		}
		if tr.Email != nil {
			fmt.Fprintf(w, "\n%s\n", tr.Email.Render())
		}
		fmt.Fprintln(w)
	}
	return nil
}

func init() {
	runCmd.Flags().StringSliceVar(&runURLs, "url", nil, "company website (repeatable)")
	runCmd.Flags().StringVar(&runFile, "file", "", "CSV file with one website per row")
	runCmd.Flags().BoolVar(&runGenerate, "generate", false, "draft an outreach email for each target")
	runCmd.Flags().StringVar(&runSender, "sender", "", "YAML sender profile used with --generate")
	runCmd.Flags().StringVar(&runNotes, "notes", "", "free-text notes passed to extraction and generation")
	runCmd.Flags().StringVar(&runSchema, "schema", "", "JSON schema file replacing the built-in extraction schema")
	runCmd.Flags().IntVar(&runMaxAttempts, "max-attempts", 0, "extra extraction attempts (default from config)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "output format (json, text)")
	rootCmd.AddCommand(runCmd)
}
