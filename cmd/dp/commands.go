package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/dp-remediate/internal/config"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/engine"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/logging"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/models"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/output"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/policy"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/dp-remediate/internal/version"
)

// engineFactory builds the Engine used by the remediate commands.
// Tests replace it to inject fake AWS clients.
var engineFactory = func(cfg *config.Config, log zerolog.Logger) engine.Engine {
	provider := common.NewDefaultAWSClientProvider().WithFallbackRegion(cfg.AWS.DefaultRegion)
	return engine.NewDefaultEngine(provider, common.NewClientSet, log)
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:   "dp-remediate",
		Short: "Remediate public RDS instances, public S3 buckets and SSM instance roles",
	}
	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "Config file (default: ~/.config/dp-remediate/config.yaml)")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&gf.logFormat, "log-format", "", "Log format: console or json")

	root.AddCommand(newAWSCmd(gf))
	root.AddCommand(newDoctorCmd(gf))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

func newAWSCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aws",
		Short: "AWS provider commands",
	}
	cmd.AddCommand(newRemediateCmd(gf))
	return cmd
}

func newRemediateCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remediate",
		Short: "Remediate insecure AWS resources",
	}
	cmd.AddCommand(newPipelineCmd(gf, engine.PipelineRDS, "Disable public access on RDS instances", engine.PipelineRDS))
	cmd.AddCommand(newPipelineCmd(gf, engine.PipelineS3, "Remove AllUsers ACL grants and bucket policies from public buckets", engine.PipelineS3))
	cmd.AddCommand(newPipelineCmd(gf, engine.PipelineSSM, "Detach AmazonSSMManagedInstanceCore from EC2 instance roles", engine.PipelineSSM))
	cmd.AddCommand(newPipelineCmd(gf, "all", "Run every remediation pipeline", engine.AllPipelines...))
	return cmd
}

// remediateFlags holds the per-command flags of a remediate subcommand.
type remediateFlags struct {
	profile     string
	regions     []string
	dryRun      bool
	concurrency int
	reportFmt   string
	policyPath  string
	output      string
}

func newPipelineCmd(gf *globalFlags, use, short string, pipelines ...string) *cobra.Command {
	f := &remediateFlags{}

	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, gf)
			if err != nil {
				return err
			}
			applyRemediateFlags(cmd, cfg, f)
			if err := checkReportFormat(f.reportFmt); err != nil {
				return err
			}

			// A JSON report owns stdout; log lines move to stderr.
			logOut := cmd.OutOrStdout()
			if engine.ReportFormat(f.reportFmt) == engine.ReportFormatJSON {
				logOut = cmd.ErrOrStderr()
			}
			log, err := logging.New(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Writer: logOut,
			})
			if err != nil {
				return err
			}

			pol, err := loadPolicy(cfg.Remediation.PolicyFile)
			if err != nil {
				return err
			}

			opts := engine.RemediateOptions{
				Pipelines:   pipelines,
				Profile:     f.profile,
				Regions:     cfg.AWS.Regions,
				DryRun:      f.dryRun,
				Concurrency: cfg.Remediation.Concurrency,
				Policy:      pol,
			}
			return runRemediation(cmd.Context(), engineFactory(cfg, log), cmd.OutOrStdout(), opts, f)
		},
	}

	cmd.Flags().StringVar(&f.profile, "profile", "", "AWS profile name (default: config or default credential chain)")
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "AWS region(s) for regional pipelines (default: profile region)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Evaluate resources without making changes")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "Resources processed at once per pipeline")
	cmd.Flags().StringVar(&f.reportFmt, "report", "", "Print a report after the run: table or json")
	cmd.Flags().StringVar(&f.policyPath, "policy", "", "Remediation policy file (default: ./dp.yaml)")
	cmd.Flags().StringVar(&f.output, "output", "", "Write the full JSON report to this file path")
	return cmd
}

// loadConfig reads the config file and applies the persistent log flags.
func loadConfig(cmd *cobra.Command, gf *globalFlags) (*config.Config, error) {
	cfg, err := config.NewFileLoader(gf.configPath).Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = gf.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = gf.logFormat
	}
	return cfg, nil
}

// applyRemediateFlags overlays explicitly set flags on cfg. Unset flags keep
// the config value; the profile falls back to aws.default_profile.
func applyRemediateFlags(cmd *cobra.Command, cfg *config.Config, f *remediateFlags) {
	if !cmd.Flags().Changed("profile") {
		f.profile = cfg.AWS.DefaultProfile
	}
	if cmd.Flags().Changed("region") {
		cfg.AWS.Regions = f.regions
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Remediation.Concurrency = f.concurrency
	}
	if cmd.Flags().Changed("policy") {
		cfg.Remediation.PolicyFile = f.policyPath
	}
}

// loadPolicy reads and validates the optional policy file. A missing file
// yields a nil policy, which means defaults for every pipeline.
func loadPolicy(path string) (*policy.PolicyConfig, error) {
	pol, err := policy.LoadOptional(path)
	if err != nil {
		return nil, err
	}
	if pol == nil {
		return nil, nil
	}
	if errs := policy.Validate(pol, engine.AllPipelines); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy %s: %w", path, errors.Join(errs...))
	}
	return pol, nil
}

// runRemediation executes the run and renders its report. List and
// remediation failures are logged and recorded in the report; only lookup
// failures make the command fail.
func runRemediation(ctx context.Context, eng engine.Engine, w io.Writer, opts engine.RemediateOptions, f *remediateFlags) error {
	if err := checkReportFormat(f.reportFmt); err != nil {
		return err
	}

	report, runErr := eng.RunRemediation(ctx, opts)
	if report == nil {
		return fmt.Errorf("remediation failed: %w", runErr)
	}

	if f.output != "" {
		if err := writeReportToFile(f.output, report); err != nil {
			return err
		}
	}

	switch engine.ReportFormat(f.reportFmt) {
	case engine.ReportFormatJSON:
		if err := printJSON(w, report); err != nil {
			return err
		}
	case engine.ReportFormatTable:
		printTable(w, report)
	}

	if errors.Is(runErr, engine.ErrLookup) {
		return fmt.Errorf("%d resource lookup(s) failed", engine.LookupFailures(report))
	}
	return nil
}

// checkReportFormat rejects --report values other than table, json or empty.
// Callers check it before the engine makes any change.
func checkReportFormat(format string) error {
	switch engine.ReportFormat(format) {
	case engine.ReportFormatNone, engine.ReportFormatJSON, engine.ReportFormatTable:
		return nil
	}
	return fmt.Errorf("unknown report format %q; valid values: table, json", format)
}

// printJSON writes the report as indented JSON to w.
func printJSON(w io.Writer, report *models.RemediationReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// writeReportToFile serialises report as indented JSON and writes it to path,
// creating or overwriting the file. It does not affect stdout output.
func writeReportToFile(path string, report *models.RemediationReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

// printTable renders the run summary followed by the results table.
func printTable(w io.Writer, report *models.RemediationReport) {
	output.RenderSummary(w, report)
	fmt.Fprintln(w)
	output.RenderTable(w, report.Results, output.TableOptions{
		IncludePipeline: true,
	})
}
