package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/bindpost"
	"github.com/wippyai/bindpost/config"
	"github.com/wippyai/bindpost/pipeline"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code so deferred cleanup runs before exit.
func run(args []string) int {
	fs := flag.NewFlagSet("bindpost", flag.ContinueOnError)
	var (
		configFile  = fs.String("config", "", "Path to bindpost.yaml (default: search upwards from -C)")
		workDir     = fs.String("C", ".", "Directory to start the configuration search from")
		dir         = fs.String("dir", "", "Artifact directory (overrides config)")
		name        = fs.String("name", "", "Generator out-name (overrides config)")
		tc          = fs.String("toolchain", "", "Module toolchain: native or binaryen (overrides config)")
		genVersion  = fs.String("generator-version", "", "Generator version to assume when the module records none")
		dryRun      = fs.Bool("dry-run", false, "Run every step but write nothing")
		logLevel    = fs.String("log-level", "info", "Log level: debug, info, warn, error")
		jsonLogs    = fs.Bool("json", false, "Emit JSON logs")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
		showVersion = fs.Bool("version", false, "Print version and exit")
	)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Println("bindpost", version)
		return 0
	}

	log, err := newLogger(*logLevel, *jsonLogs, *interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()
	bindpost.SetLogger(log)

	cfg, err := loadConfig(*configFile, *workDir, overrides{
		dir: *dir, name: *name, toolchain: *tc, generatorVersion: *genVersion,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := pipeline.Options{DryRun: *dryRun}
	if *interactive {
		if err := runInteractive(ctx, cfg, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	report, err := pipeline.RunWithOptions(ctx, cfg, opts)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return 1
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Print(renderSummary(report, *dryRun, termWidth()))
		return 0
	}
	fmt.Println(report.Summary())
	return 0
}

type overrides struct {
	dir, name, toolchain, generatorVersion string
}

func loadConfig(path, workDir string, o overrides) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(workDir)
	}
	if err != nil {
		return nil, err
	}
	if o.dir != "" {
		cfg.Dir = o.dir
	}
	if o.name != "" {
		cfg.Name = o.name
	}
	if o.toolchain != "" {
		cfg.Toolchain = o.toolchain
	}
	if o.generatorVersion != "" {
		cfg.Generator.Version = o.generatorVersion
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds a console logger for terminals and a JSON logger
// otherwise. The TUI owns the screen, so logs are limited to errors there.
func newLogger(level string, jsonOutput, interactive bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if interactive && lvl < zapcore.ErrorLevel {
		lvl = zapcore.ErrorLevel
	}

	var zc zap.Config
	if jsonOutput || !isatty.IsTerminal(os.Stderr.Fd()) {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	sizeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// renderSummary formats a report for a terminal of the given width.
func renderSummary(r *pipeline.Report, dryRun bool, width int) string {
	var b strings.Builder

	title := "bindpost"
	if dryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(" ")
	b.WriteString(fmt.Sprintf("%s %s from %s", r.Generator.Name, r.Generator.Version, r.Generator.Source))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Module: %d dead branches folded, %d stubs removed, %d exports removed\n",
		r.Module.DeadBranches, r.Module.StubsRemoved, r.Module.ExportsRemoved))
	if r.Module.StubsKept > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("        %d stubs kept, still referenced", r.Module.StubsKept)))
		b.WriteString("\n")
	}
	b.WriteString("Accessors: " + nameStyle.Render(strings.Join(r.Accessors, ", ")) + "\n")
	if len(r.Skipped) > 0 {
		b.WriteString(warnStyle.Render("Skipped: "+strings.Join(r.Skipped, ", ")) + "\n")
	}
	b.WriteString(fmt.Sprintf("Out-methods: %d\n\n", len(r.OutMethods)))

	nameWidth := 0
	for _, a := range r.Artifacts {
		nameWidth = max(nameWidth, len(a.Name))
	}
	nameWidth = min(nameWidth, max(width-40, 10))
	for _, a := range r.Artifacts {
		before := "new"
		if a.Before > 0 {
			before = humanize.Bytes(uint64(a.Before))
		}
		line := fmt.Sprintf("  %-*s %10s -> %s", nameWidth, a.Name, before,
			sizeStyle.Render(humanize.Bytes(uint64(a.After))))
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(resultStyle.Render(fmt.Sprintf("done in %s", r.Duration.Round(time.Millisecond))))
	b.WriteString("\n")
	return b.String()
}
