package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"igaggregator/pkg/analyzer"
	"igaggregator/pkg/auth"
	"igaggregator/pkg/config"
	igerrors "igaggregator/pkg/errors"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
	"igaggregator/pkg/models"
	"igaggregator/pkg/storage"
	"igaggregator/pkg/ui"
)

var (
	// Analyze command flags
	apiKeys           []string
	baseURL           string
	outputDir         string
	rateLimit         float64
	enrichConcurrency int
	redisAddr         string
	metricsListen     string
	retries           int
	printJSON         bool
	noSave            bool
	analyzeTimeout    time.Duration
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <username> [username...]",
	Short: "Build the aggregated report for one or more profiles",
	Long: `Build the aggregated report for one or more Instagram profiles.

API keys are taken from, in order of priority:
  - the --keys flag
  - the INSTAGRAM_API_KEYS environment variable or the config file
  - keys stored with 'igaggregator keys add'

Several usernames are analyzed concurrently. The same username twice is
rejected. Reports are written to the output directory as <username>.json.`,
	Example: `  # Analyze one profile with stored keys
  igaggregator analyze nasa

  # Compare two profiles and print the JSON reports
  igaggregator analyze nasa spacex --json --no-save

  # Use an explicit key pool and expose Prometheus metrics
  igaggregator analyze nasa --keys k1,k2 --metrics-listen :9090`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringSliceVarP(&apiKeys, "keys", "k", nil, "comma separated API keys")
	analyzeCmd.Flags().StringVar(&baseURL, "base-url", "", "upstream API base URL")
	analyzeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for saved reports")
	analyzeCmd.Flags().Float64Var(&rateLimit, "rate-limit", 0, "requests per second per key")
	analyzeCmd.Flags().IntVar(&enrichConcurrency, "enrich-concurrency", 0, "posts enriched in parallel")
	analyzeCmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for the shared report cache")
	analyzeCmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address to serve /metrics on while running")
	analyzeCmd.Flags().IntVar(&retries, "retries", 0, "attempts per upstream request, including the first")
	analyzeCmd.Flags().BoolVar(&printJSON, "json", false, "print reports as JSON instead of a summary")
	analyzeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write reports to disk")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 0, "overall deadline (0 means none)")
}

func analyzeFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if len(apiKeys) > 0 {
		flags["keys"] = apiKeys
	}
	if baseURL != "" {
		flags["base-url"] = baseURL
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if rateLimit > 0 {
		flags["rate-limit"] = rateLimit
	}
	if enrichConcurrency > 0 {
		flags["enrich-concurrency"] = enrichConcurrency
	}
	if redisAddr != "" {
		flags["redis"] = redisAddr
	}
	if metricsListen != "" {
		flags["metrics-listen"] = metricsListen
	}
	if retries > 0 {
		flags["retries"] = retries
	}
	return flags
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	flags := analyzeFlags()

	// Stored keys only matter when no other source provides any
	if manager, err := auth.NewManager(); err == nil {
		if stored, err := manager.Keys(); err == nil && len(stored) > 0 {
			flags["stored-keys"] = stored
		}
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("igaggregator starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if analyzeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, analyzeTimeout)
		defer cancel()
	}

	if cfg.Metrics.Listen != "" {
		shutdown := serveMetrics(cfg.Metrics.Listen, log)
		defer shutdown()
	}

	return analyzeProfiles(ctx, cfg, args, analyzeOutput{
		JSON:   printJSON,
		Save:   !noSave,
		Stdout: cmd.OutOrStdout(),
	}, log)
}

// analyzeOutput says what to do with finished reports
type analyzeOutput struct {
	JSON   bool
	Save   bool
	Stdout io.Writer
}

func analyzeProfiles(ctx context.Context, cfg *config.Config, usernames []string, out analyzeOutput, log logger.Logger) error {
	a, err := analyzer.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	var store *storage.Manager
	if out.Save {
		store, err = storage.NewManager(cfg.Output.Directory, cfg.Output.Pretty)
		if err != nil {
			return fmt.Errorf("failed to prepare output directory: %w", err)
		}
	}

	reports, err := a.AnalyzeMany(ctx, usernames)
	if err != nil {
		switch {
		case igerrors.IsPrivate(err):
			return fmt.Errorf("cannot analyze a private profile: %w", err)
		case errors.Is(err, igerrors.ErrProfilesAreIdentical):
			return fmt.Errorf("each username may be given once: %w", err)
		default:
			return err
		}
	}

	for i, report := range reports {
		if err := emitReport(usernames[i], report, cfg, out); err != nil {
			return err
		}
		if store == nil {
			continue
		}
		path, err := store.SaveReport(usernames[i], report)
		if err != nil {
			return fmt.Errorf("failed to save report for %s: %w", usernames[i], err)
		}
		ui.PrintInfo("Report saved", path)
	}
	return nil
}

func emitReport(username string, report models.ProfileReport, cfg *config.Config, out analyzeOutput) error {
	if !out.JSON {
		ui.PrintReportSummary(report, ui.Budgets{
			Followers: cfg.Analysis.MaxFollowersAndFollows,
			Posts:     cfg.Analysis.MaxPostsAndReels,
		})
		return nil
	}

	var data []byte
	var err error
	if cfg.Output.Pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", username, err)
	}
	_, err = fmt.Fprintln(out.Stdout, string(data))
	return err
}

// serveMetrics exposes the Prometheus registry until the returned func runs
func serveMetrics(addr string, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.InfoWithFields("serving metrics", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorWithFields("metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
