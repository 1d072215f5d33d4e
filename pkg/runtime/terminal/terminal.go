package terminal

import (
	"io"
	"os"

	"github.com/de-tools/pricing-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/pricing-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/pricing-atlas/pkg/services/analysis"
	"github.com/de-tools/pricing-atlas/pkg/store/objectstore"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	env     *commands.Env
	out     io.Writer
	verbose bool
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
	// Log receives diagnostics; defaults to stderr.
	Log        io.Writer
	NewQuerier analysis.QuerierFactory
	Uploader   objectstore.Uploader
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Log == nil {
		opts.Log = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	cli := &CLI{
		out: opts.Output,
		env: &commands.Env{
			Logger:     zerolog.New(opts.Log).With().Timestamp().Logger().Level(zerolog.WarnLevel),
			NewQuerier: opts.NewQuerier,
			Uploader:   opts.Uploader,
		},
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pricing",
		Short:         "Price elasticity and optimal price analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			_ = godotenv.Load()
			if cli.verbose {
				cli.env.Logger = cli.env.Logger.Level(zerolog.DebugLevel)
			}
		},
	}
	cmd.SetOut(cli.out)

	cmd.PersistentFlags().StringVarP(&cli.env.ConfigPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&cli.env.ProfilesPath, "profiles", "",
		"Path to the pricing service profiles file (default is $HOME/.pricingcfg)")
	cmd.PersistentFlags().StringVarP(&cli.env.Profile, "profile", "p", "", "Pricing service profile to use")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(commands.NewAnalyzeCmd(cli.env, export.NewReporter(cli.out)))
	cmd.AddCommand(commands.NewEntitiesCmd(cli.env, export.NewEntitiesReporter(cli.out)))

	return cmd
}
