package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sqlguard/internal/config"
	"sqlguard/internal/extractor"
	"sqlguard/internal/model"
	"sqlguard/internal/reporter"
	"sqlguard/internal/scanner"
)

var (
	configPath string
	verbose    bool

	reportFmt  string
	outputFile string
	excludes   []string
	failOn     string
	workers    int
)

// scanExtensions are the file types the walker feeds to extraction.
var scanExtensions = []string{"xml", "go", "java", "kt", "py", "rb", "php", "ts", "js", "cs", "scala", "sql"}

var rootCmd = &cobra.Command{
	Use:   "sqlguard",
	Short: "Static safety validation for SQL statements",
	Long: `sqlguard scans source and mapper files for SQL statements, expands
templated SQL into its concrete variants and checks every variant against
a set of safety rules: full-table mutations, dummy conditions, missing
pagination, denied tables and more.`,
	SilenceUsage: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a directory tree for unsafe SQL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return runScan(root)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <sql>",
	Short: "Validate a single SQL statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to sqlguard.yaml (default: search the scanned directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	scanCmd.Flags().StringVarP(&reportFmt, "format", "f", "console", "Report format (console, html)")
	scanCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output file path (default: 'report.html' for html)")
	scanCmd.Flags().StringSliceVarP(&excludes, "exclude", "e", []string{".git", "vendor", "node_modules", "*_test.go"}, "Patterns to exclude from the scan")
	scanCmd.Flags().StringVar(&failOn, "fail-on", "HIGH", "Exit non-zero when a finding at or above this level exists (NONE disables)")
	scanCmd.Flags().IntVar(&workers, "workers", 0, "Concurrent file workers (default: number of CPUs)")

	rootCmd.AddCommand(scanCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadConfig(dir string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromDir(dir)
}

func runScan(root string) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("source path %s: %w", root, err)
	}
	failLevel, err := model.ParseRiskLevel(failOn)
	if err != nil {
		return fmt.Errorf("--fail-on: %w", err)
	}

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	v := config.BuildValidator(cfg, logger)
	mgr := extractor.NewManager()

	excl := append(append([]string{}, cfg.Scan.Exclude...), excludes...)
	walker := scanner.NewFileWalker(scanExtensions, excl)

	ctx := context.Background()
	paths, walkErrs := walker.Walk(ctx, root)

	poolWorkers := workers
	if poolWorkers == 0 {
		poolWorkers = cfg.Scan.Workers
	}
	if poolWorkers == 0 {
		poolWorkers = runtime.GOMAXPROCS(0)
	}
	pool := scanner.NewPool(poolWorkers, func(path string) ([]model.Finding, error) {
		contexts, err := mgr.Extract(path)
		if err != nil {
			return nil, err
		}
		findings := make([]model.Finding, 0, len(contexts))
		for _, c := range contexts {
			findings = append(findings, model.Finding{Context: c, Result: v.Validate(c)})
		}
		return findings, nil
	})
	results := pool.Run(ctx, paths)

	var findings []model.Finding
	for res := range results {
		if res.Err != nil {
			logger.Warn("file skipped", zap.String("file", res.File), zap.Error(res.Err))
			continue
		}
		findings = append(findings, res.Findings...)
	}
	if err := <-walkErrs; err != nil {
		return fmt.Errorf("walk %s: %w", root, err)
	}

	if err := report(findings); err != nil {
		return fmt.Errorf("reporting failed: %w", err)
	}

	if failLevel > model.RiskNone && reporter.WorstLevel(findings) >= failLevel {
		return fmt.Errorf("findings at or above %s level", failLevel)
	}
	return nil
}

func runCheck(sql string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}
	logger := newLogger()
	defer logger.Sync()

	v := config.BuildValidator(cfg, logger)
	sqlCtx := &model.SqlContext{SQL: sql, StatementID: "cli.check"}
	result := v.Validate(sqlCtx)

	rpt := reporter.NewConsoleReporter(os.Stdout)
	if err := rpt.Report([]model.Finding{{Context: sqlCtx, Result: result}}); err != nil {
		return err
	}
	if !result.Passed() {
		return fmt.Errorf("statement failed validation at %s level", result.OverallRisk())
	}
	return nil
}

func report(findings []model.Finding) error {
	switch reportFmt {
	case "html":
		target := outputFile
		if target == "" {
			target = "report.html"
		}
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		defer f.Close()
		return reporter.NewHTMLReporter(f).Report(findings)
	default:
		return reporter.NewConsoleReporter(os.Stdout).Report(findings)
	}
}
