package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"exhume/internal/output"
	"exhume/internal/progress"
	"exhume/internal/report"
	"exhume/pkg/analyzer/unused"
	"exhume/pkg/config"
	"exhume/pkg/frontend"
)

var version = "dev"

// rootArg returns the target directory from positional args, defaulting to ".".
func rootArg(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

func main() {
	app := &cli.App{
		Name:    "exhume",
		Usage:   "Unreferenced-code detector for PHP and Python",
		Version: version,
		Description: `Exhume scans a source tree for declared but unreferenced functions,
methods, properties, and static attributes using text-pattern matching.
It is deliberately not a compiler: results are candidates for human
review, with known-noisy names flagged as potential false positives.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"EXHUME_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Resolution worker count (default: one per CPU)",
			},
		},
		Commands: []*cli.Command{
			scanCmd(),
			listCmd(),
			initCmd(),
			configCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.LoadOrDefault(), nil
}

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Scan a directory for unreferenced code elements",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "language",
				Aliases:  []string{"l"},
				Usage:    "Source language: php or python",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Cap the number of reported results (enables early exit)",
			},
			&cli.BoolFlag{
				Name:  "html",
				Usage: "Also write a standalone HTML report to the current directory",
			},
		},
		Action: runScan,
	}
}

func runScan(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	lang, err := frontend.ParseLanguage(c.String("language"))
	if err != nil {
		return err
	}
	front, err := frontend.New(lang, cfg)
	if err != nil {
		return err
	}

	limit := cfg.Scan.Limit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}

	root := rootArg(c)

	// Classify up front so the progress bars know their totals; the walk is
	// deterministic, so the pipeline sees the same partition.
	analysis, tests, err := front.ClassifyFiles(root)
	if err != nil {
		return err
	}
	if len(analysis) == 0 && len(tests) == 0 {
		color.Yellow("No %s files found under %s", lang, root)
		return nil
	}

	collectBar := progress.NewTracker("Collecting declarations...", len(analysis))
	resolveBar := progress.NewTracker("Resolving usage...", len(analysis)+len(tests))

	analyzer := unused.New(front,
		unused.WithWorkers(workerCount(c, cfg)),
		unused.WithDiagnostics(printDiagnostic),
		unused.WithCollectProgress(collectBar.Tick),
		unused.WithResolveProgress(resolveBar.Tick),
	)

	rep, err := analyzer.Analyze(root, limit)
	collectBar.FinishSuccess()
	resolveBar.FinishSuccess()
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if err := renderReport(c, cfg, rep, false); err != nil {
		return err
	}

	if c.Bool("html") || cfg.Output.HTML {
		path, err := report.Generate(rep.Results, rep.Language, ".")
		if err != nil {
			return err
		}
		color.Green("Report generated: %s", path)
	}
	return nil
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List every declared element sorted by line count, without usage resolution",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "language",
				Aliases:  []string{"l"},
				Usage:    "Source language: php or python",
				Required: true,
			},
		},
		Action: runList,
	}
}

func runList(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	lang, err := frontend.ParseLanguage(c.String("language"))
	if err != nil {
		return err
	}
	front, err := frontend.New(lang, cfg)
	if err != nil {
		return err
	}

	analyzer := unused.New(front, unused.WithDiagnostics(printDiagnostic))
	rep, err := analyzer.ListDeclarations(rootArg(c))
	if err != nil {
		return err
	}

	return renderReport(c, cfg, rep, true)
}

// renderReport writes the result table in the selected format. In list mode
// the usage column is a dash: nothing was resolved.
func renderReport(c *cli.Context, cfg *config.Config, rep *unused.Report, listMode bool) error {
	format := cfg.Output.Format
	if c.IsSet("format") {
		format = c.String("format")
	}

	formatter, err := output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := make([][]string, len(rep.Results))
	for i, r := range rep.Results {
		usage := fmt.Sprintf("%d", r.UsageCount)
		if listMode {
			usage = "-"
		}
		rows[i] = []string{r.QualifiedName, fmt.Sprintf("%d", r.DeclaredLines), usage, r.Status}
	}

	title := fmt.Sprintf("Unreferenced elements (%s)", rep.Language)
	if listMode {
		title = fmt.Sprintf("Declared elements (%s)", rep.Language)
	}

	table := output.NewTable(
		title,
		[]string{"Name", "Lines", "Usage Count", "Status"},
		rows,
		nil,
		rep,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if output.ParseFormat(format) == output.FormatText {
		formatter.Info("%d of %d declared elements reported (%d analysis files, %d test files)",
			len(rep.Results), rep.Declarations, rep.AnalysisFiles, rep.TestFiles)
	}
	return nil
}

func workerCount(c *cli.Context, cfg *config.Config) int {
	if c.IsSet("workers") {
		return c.Int("workers")
	}
	return cfg.Scan.Workers
}

func printDiagnostic(path string, err error) {
	fmt.Fprintf(os.Stderr, "%s\n", color.YellowString("warning: %s: %v", path, err))
}
