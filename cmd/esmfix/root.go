package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gnana997/esmfix/pkg/parser"
	"github.com/gnana997/esmfix/pkg/parser/queries"
	"github.com/gnana997/esmfix/pkg/prettier"
	"github.com/gnana997/esmfix/pkg/rewrite"
	"github.com/gnana997/esmfix/pkg/runner"
	"github.com/gnana997/esmfix/pkg/util"
)

const version = "0.1.0"

var (
	flagJSX      bool
	flagPrettier string
	flagExclude  []string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:     "esmfix <folder>",
	Short:   "Append explicit extensions to relative imports in TypeScript sources",
	Version: version,
	Long: `esmfix rewrites relative import, export and dynamic-import specifiers
in a tree of TypeScript sources so they resolve under a strict-ESM loader,
appending the .js / .jsx / index.js form each specifier needs on disk.

Specifiers that already resolve (bare package names, specifiers already
ending in .js or .jsx, or paths with no matching source file) are left
untouched, so running esmfix twice changes nothing. Only files with at
least one rewritten specifier are written back.`,
	SilenceUsage: true,
	RunE:         run,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVar(&flagJSX, "jsx", false, "append .jsx instead of .js for specifiers resolving to .tsx sources")
	rootCmd.Flags().StringVarP(&flagPrettier, "prettier", "p", "", "path to a prettier JSON config; rewritten files are formatted before writing")
	rootCmd.Flags().StringArrayVar(&flagExclude, "exclude", nil, "extra glob patterns to skip during discovery (node_modules is always skipped)")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	// A wrong positional count prints usage and exits cleanly.
	if len(args) != 1 {
		return cmd.Help()
	}

	logConfig := util.DefaultLoggerConfig()
	if flagVerbose {
		logConfig.Level = util.LevelDebug
	}
	logger := util.NewLogger(logConfig)

	// The formatter config is loaded eagerly: a bad config aborts the run
	// before any file is touched.
	var formatter runner.FileFormatter
	if flagPrettier != "" {
		f, err := prettier.Load(flagPrettier, logger)
		if err != nil {
			return err
		}
		formatter = f
	}

	parsers := parser.NewManager(logger)
	defer parsers.Close()

	queryMgr := queries.NewManager(parsers, logger)
	defer queryMgr.Close()

	rewriter := rewrite.NewRewriter(parsers, queryMgr, logger)

	r := runner.NewRunner(rewriter, formatter, runner.Options{
		JSX:     flagJSX,
		Exclude: flagExclude,
	}, logger)

	stats, err := r.Run(args[0])
	if err != nil {
		return err
	}

	printSummary(stats)

	// Per-file failures are part of a settled run, not a process failure.
	return nil
}

func printSummary(stats *runner.Stats) {
	summary := fmt.Sprintf("scanned %d files, rewrote %d (%d specifiers) in %dms",
		stats.FilesScanned, stats.FilesRewritten, stats.SpecifiersRewritten, stats.DurationMs)

	if stats.FilesFailed > 0 {
		color.Yellow("%s, %d failed", summary, stats.FilesFailed)
		for _, fileErr := range stats.Errors {
			color.Red("  %s: %v", fileErr.FilePath, fileErr.Error)
		}
		return
	}

	color.Green("%s", summary)
}
