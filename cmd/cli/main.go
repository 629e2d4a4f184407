package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"goamr/adapters/api"
	"goamr/adapters/excel"
	"goamr/adapters/file"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal"
	"goamr/internal/config"
	"goamr/internal/container"
	"goamr/internal/render"
	"goamr/internal/testkit"
	"goamr/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globals bound to persistent flags
var (
	sortFlag    string
	zFlag       float64
	workersFlag int
	saveFlag    bool
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "goamr-cli",
		Short: "Enrich per-target classifier metrics with intervals, confusion matrices and ROC shapes",
		Long: `Enrich per-target classifier metrics with confidence intervals, reconstructed
confusion matrices, derived metrics, approximated ROC curves and imbalance
warnings, then summarize the corpus.

Input files are JSON maps of target id to metrics record, or xlsx/csv sheets
with one row per target. Estimator defaults come from the environment
(CONFIDENCE_Z, CONFIDENCE_LEVEL, ROC_POINTS, SKEW_THRESHOLD, ENRICH_WORKERS).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&sortFlag, "sort", "accuracy", "Ranking key: accuracy|auc|f1|samples")
	rootCmd.PersistentFlags().Float64Var(&zFlag, "z", 0, "Interval z multiplier (default from CONFIDENCE_Z)")
	rootCmd.PersistentFlags().IntVar(&workersFlag, "workers", 0, "Concurrent per-target enrichments (default from ENRICH_WORKERS)")
	rootCmd.PersistentFlags().BoolVar(&saveFlag, "save", false, "Store the report in history (requires DATABASE_URL)")

	rootCmd.AddCommand(
		newEnrichCmd(),
		newSummaryCmd(),
		newExportCmd(),
		newFetchCmd(),
		newDemoCmd(),
		newHistoryCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEnrichCmd() *cobra.Command {
	var dataPath string
	var outFile string

	cmd := &cobra.Command{
		Use:   "enrich [metrics-file]",
		Short: "Enrich a metrics file and print the report as JSON",
		Long: `Enrich every target of a metrics file and print the full report as JSON.

Example: goamr-cli enrich model_metrics.json --sort auc --out report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, key, err := enrichFile(cmd.Context(), args[0], dataPath)
			if err != nil {
				return err
			}
			return withOutput(outFile, func(w io.Writer) error {
				return writeJSON(w, report, key)
			})
		},
	}

	cmd.Flags().StringVar(&dataPath, "data-path", "", "gjson path to the metrics map inside the document")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "summary [metrics-file]",
		Short: "Print the corpus summary and target ranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, key, err := enrichFile(cmd.Context(), args[0], dataPath)
			if err != nil {
				return err
			}
			return printSummary(os.Stdout, report, key)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data-path", "", "gjson path to the metrics map inside the document")
	return cmd
}

func newExportCmd() *cobra.Command {
	var dataPath, xlsxPath, mdPath, htmlPath string

	cmd := &cobra.Command{
		Use:   "export [metrics-file]",
		Short: "Export an enriched report as xlsx, markdown or HTML",
		Long: `Export an enriched report to one or more formats.

Example: goamr-cli export model_metrics.json --xlsx report.xlsx --md report.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if xlsxPath == "" && mdPath == "" && htmlPath == "" {
				return fmt.Errorf("nothing to export: set --xlsx, --md or --html")
			}

			report, key, err := enrichFile(cmd.Context(), args[0], dataPath)
			if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := excel.NewReportWriter(key).SaveAs(report, xlsxPath); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", xlsxPath)
			}

			md := render.Markdown(report, render.Options{SortKey: key})
			if mdPath != "" {
				if err := os.WriteFile(mdPath, md, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", mdPath)
			}
			if htmlPath != "" {
				if err := os.WriteFile(htmlPath, render.HTML(md), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", htmlPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data-path", "", "gjson path to the metrics map inside the document")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Workbook output path")
	cmd.Flags().StringVar(&mdPath, "md", "", "Markdown output path")
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML output path")
	return cmd
}

func newFetchCmd() *cobra.Command {
	var url, token, dataPath string
	var timeout time.Duration
	var retries int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch metrics from an HTTP endpoint and print the enriched report",
		Long: `Fetch a metrics document over HTTP, enrich it and print the report as JSON.

Example: goamr-cli fetch --url https://models.example.org/metrics --token $METRICS_TOKEN`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := api.DefaultEndpoint(url).WithToken(token)
			endpoint.DataPath = dataPath
			endpoint.Timeout = timeout
			endpoint.RetryAttempts = retries
			if url == "" {
				return fmt.Errorf("--url is required (or set METRICS_URL)")
			}

			reader, err := api.NewAPIReader(endpoint)
			if err != nil {
				return err
			}
			defer reader.Close()

			report, key, err := enrichSource(cmd.Context(), reader)
			if err != nil {
				return err
			}

			meta := reader.LastFetch()
			fmt.Fprintf(os.Stderr, "Fetched %d records from %s in %s (status %d, %d attempts)\n",
				meta.RecordsCount, meta.URL, meta.ResponseTime.Round(time.Millisecond), meta.StatusCode, meta.Attempts)
			return writeJSON(os.Stdout, report, key)
		},
	}

	cmd.Flags().StringVar(&url, "url", os.Getenv("METRICS_URL"), "Metrics endpoint URL")
	cmd.Flags().StringVar(&token, "token", os.Getenv("METRICS_TOKEN"), "Bearer token")
	cmd.Flags().StringVar(&dataPath, "data-path", "", "gjson path to the metrics map inside the response")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Per-request timeout")
	cmd.Flags().IntVar(&retries, "retries", 2, "Retries on transport errors, 429 and 5xx")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var targets int
	var seed int64
	var skippedRate float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Enrich a seeded synthetic corpus",
		Long: `Generate a synthetic corpus with the given seed and print its markdown report.

Example: goamr-cli demo --targets 12 --seed 7 --sort f1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus := testkit.DefaultCorpusConfig()
			corpus.Targets = targets
			corpus.Seed = seed
			corpus.SkippedRate = skippedRate

			report, key, err := enrichSource(cmd.Context(), testkit.NewSyntheticSource(corpus))
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, report, key)
			}
			_, err = os.Stdout.Write(render.Markdown(report, render.Options{SortKey: key}))
			return err
		},
	}

	cmd.Flags().IntVar(&targets, "targets", len(testkit.DefaultTargets), "Number of targets")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic corpora")
	cmd.Flags().Float64Var(&skippedRate, "skipped-rate", 0.1, "Fraction of targets reported as skipped")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of markdown")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	var show string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored reports, or print one with --show",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown()

			if !c.Reports.HistoryEnabled() {
				return fmt.Errorf("report history is disabled: set DATABASE_URL")
			}

			if show != "" {
				id, err := core.ParseReportID(show)
				if err != nil {
					return err
				}
				report, err := c.Reports.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				key, err := metrics.ParseSortKey(sortFlag)
				if err != nil {
					return err
				}
				return writeJSON(os.Stdout, report, key)
			}

			listings, err := c.Reports.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(os.Stdout, listings)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum reports to list")
	cmd.Flags().StringVar(&show, "show", "", "Report id to print as JSON")
	return cmd
}

// newContainer wires the application from the environment, applying the
// persistent flag overrides.
func newContainer(ctx context.Context) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if zFlag > 0 {
		cfg.Estimator.Z = zFlag
	}
	if workersFlag > 0 {
		cfg.Estimator.Workers = workersFlag
	}
	// inputs come from the command line, never from METRICS_SOURCE
	cfg.Source = config.SourceConfig{Kind: config.SourceSynthetic}

	level, _ := internal.ParseLogLevel(cfg.LogLevel)
	if os.Getenv("LOG_LEVEL") == "" {
		level = internal.LogLevelWarn
	}
	return container.New(ctx, cfg, internal.NewLogger(level))
}

func enrichFile(ctx context.Context, path, dataPath string) (*metrics.Report, metrics.SortKey, error) {
	return enrichSource(ctx, sourceForFile(path, dataPath))
}

func sourceForFile(path, dataPath string) ports.MetricsSource {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls", ".csv":
		return excel.NewSource(excel.DefaultExcelConfig(path))
	default:
		return file.NewSource(path, dataPath)
	}
}

func enrichSource(ctx context.Context, source ports.MetricsSource) (*metrics.Report, metrics.SortKey, error) {
	key, err := metrics.ParseSortKey(sortFlag)
	if err != nil {
		return nil, "", err
	}

	c, err := newContainer(ctx)
	if err != nil {
		return nil, "", err
	}
	defer c.Shutdown()

	raw, err := source.FetchMetrics(ctx)
	if err != nil {
		return nil, "", err
	}

	var report *metrics.Report
	if saveFlag {
		if !c.Reports.HistoryEnabled() {
			return nil, "", fmt.Errorf("--save needs report history: set DATABASE_URL")
		}
		report, err = c.Reports.Build(ctx, source.Name(), raw)
	} else {
		report, err = c.Enricher.Enrich(ctx, source.Name(), raw)
	}
	if err != nil {
		return nil, "", err
	}
	return report, key, nil
}

// rankedReport adds the ranking order, which a JSON object cannot carry
type rankedReport struct {
	*metrics.Report
	SortKey metrics.SortKey `json:"sort_key"`
	Ranking []string        `json:"ranking"`
}

func writeJSON(w io.Writer, report *metrics.Report, key metrics.SortKey) error {
	out := rankedReport{Report: report, SortKey: key}
	for _, rec := range report.Ranked(key) {
		out.Ranking = append(out.Ranking, rec.TargetID)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, report *metrics.Report, key metrics.SortKey) error {
	fmt.Fprintf(w, "Report %s from %s (z = %.3f, input %s)\n\n", report.ID, report.Source, report.Z, report.InputHash.Short())

	if s := report.Summary; s != nil {
		fmt.Fprintf(w, "Models:           %d trained, %d untrained, %d rejected\n", s.ModelCount, s.UntrainedCount, len(report.Rejected))
		fmt.Fprintf(w, "Mean accuracy:    %.1f%% (median %.1f%%, range %.1f%% to %.1f%%)\n",
			s.MeanAccuracy*100, s.MedianAccuracy*100, s.MinAccuracy*100, s.MaxAccuracy*100)
		fmt.Fprintf(w, "Pooled accuracy:  %.1f%% [%.1f%%, %.1f%%]\n",
			s.PooledAccuracy*100, s.PooledAccuracyCI.Lo*100, s.PooledAccuracyCI.Hi*100)
		fmt.Fprintf(w, "Mean F1 / AUC:    %.3f / %.3f\n", s.MeanF1, s.MeanAUC)
		fmt.Fprintf(w, "Total samples:    %d\n\n", s.TotalSamples)
	} else {
		fmt.Fprintf(w, "No summary: %s\n\n", report.SummaryNote)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tTARGET\tTIER\tACCURACY\t95%% CI\tF1\tAUC\tSAMPLES\tFLAGS\n")
	for i, rec := range report.Ranked(key) {
		var flags []string
		if rec.ImbalanceWarning != nil {
			flags = append(flags, string(rec.ImbalanceWarning.Kind))
		}
		for _, warn := range rec.Warnings {
			flags = append(flags, string(warn.Kind))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f%%\t[%.3f, %.3f]\t%.3f\t%.3f\t%d\t%s\n",
			i+1, rec.TargetID, rec.Tier, rec.Accuracy*100, rec.AccuracyCI.Lo, rec.AccuracyCI.Hi,
			rec.F1, rec.AUC, rec.NSamples, strings.Join(flags, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for id, verr := range report.Rejected {
		fmt.Fprintf(w, "rejected %s: %v\n", id, verr)
	}
	return nil
}

func printHistory(w io.Writer, listings []ports.ReportListing) error {
	if len(listings) == 0 {
		fmt.Fprintln(w, "No reports stored.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tGENERATED\tSOURCE\tMODELS\tMEAN ACC\tREJECTED\n")
	for _, l := range listings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f%%\t%d\n",
			l.ID, l.GeneratedAt.Format(time.RFC3339), l.Source, l.ModelCount, l.MeanAccuracy*100, l.RejectedCount)
	}
	return tw.Flush()
}
