// Package commands implements the CLI commands for creator.
package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/creator/internal/app"
	"go.trai.ch/creator/internal/build"
	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/zerr"
)

// CLI represents the command line interface for creator.
type CLI struct {
	app     Application
	logs    LogConfigurer
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, names []string, opts app.RunOptions) error
	Export(ctx context.Context, opts app.ExportOptions) error
	Clean(ctx context.Context, names []string, opts app.CleanOptions) error
}

// LogConfigurer is implemented by loggers whose output format can be switched.
type LogConfigurer interface {
	SetJSON(enable bool)
	SetQuiet(enable bool)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "creator",
		Short:         "Generate ninja build files from unit scripts and run their tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	// Registered before the version flag so that -v stays with --verbose.
	flags := rootCmd.PersistentFlags()
	flags.StringArrayP("define", "D", nil, "Define a global value as KEY=VALUE")
	flags.StringArrayP("macro", "M", nil, "Define a global macro as KEY=VALUE, expanded when used")
	flags.StringArrayP("unitpath", "I", nil, "Search this directory for imported units")
	flags.StringP("unit", "u", "", "Entry unit identity or script path")
	flags.BoolP("verbose", "v", false, "Show the commands ninja runs")
	flags.Bool("json", false, "Write logs as JSON")
	flags.Bool("quiet", false, "Only log warnings and errors")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if c.logs == nil {
			return
		}
		jsonLogs, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		c.logs.SetJSON(jsonLogs)
		c.logs.SetQuiet(quiet)
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newExportCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetLogConfigurer makes --json and --quiet reconfigure lc before a command runs.
func (c *CLI) SetLogConfigurer(lc LogConfigurer) {
	c.logs = lc
}

// loadOptions reads the persistent flags shared by every command.
func loadOptions(cmd *cobra.Command) (app.LoadOptions, error) {
	flags := cmd.Flags()
	defines, _ := flags.GetStringArray("define")
	macros, _ := flags.GetStringArray("macro")
	paths, _ := flags.GetStringArray("unitpath")
	unit, _ := flags.GetString("unit")

	opts := app.LoadOptions{Unit: unit, SearchPaths: paths}
	var err error
	if opts.Defines, err = parseAssignments(defines); err != nil {
		return opts, err
	}
	if opts.Macros, err = parseAssignments(macros); err != nil {
		return opts, err
	}
	return opts, nil
}

// parseAssignments parses KEY=VALUE pairs. Later pairs win.
func parseAssignments(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidDefine, "cannot parse "+v), "define", v)
		}
		out[key] = value
	}
	return out, nil
}
