package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/compose-network/wlscanner/log"
	"github.com/compose-network/wlscanner/wlscanner-app/config"
	"github.com/compose-network/wlscanner/x/generator"
)

// Set at build time with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wlscanner",
		Short: "Wayland protocol compiler",
		Long: "wlscanner parses Wayland protocol descriptions (XML or YAML), validates them\n" +
			"and generates typed Go client and server bindings over a shared wire runtime.",
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// Catalog flags
	rootCmd.PersistentFlags().String("manifest", "", "catalog manifest path")
	rootCmd.PersistentFlags().StringSlice("collection", nil, "compile only the named collections")
	rootCmd.PersistentFlags().Int("concurrency", 0, "collections compiled in parallel (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().String("metrics-textfile", "", "write a prometheus snapshot here after the run")

	rootCmd.AddCommand(
		newGenerateCmd(),
		newValidateCmd(),
		newDumpCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [documents...]",
		Short: "Generate Go bindings for the catalog or the given documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			imports, _ := cmd.Flags().GetStringSlice("import")
			res, written, err := app.Generate(cmd.Context(), args, imports)
			if res != nil {
				printSummary(cmd, res)
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", p)
			}
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "", "output directory")
	cmd.Flags().String("import-path", "", "import path of the output directory")
	cmd.Flags().String("runtime-path", "", "import path prefix of the wire and session packages")
	cmd.Flags().StringSlice("role", nil, "roles to generate (client, server)")
	cmd.Flags().StringSlice("import", nil, "dependency documents used for name resolution only")
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [documents...]",
		Short: "Parse and validate the catalog or the given documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			imports, _ := cmd.Flags().GetStringSlice("import")
			res, err := app.Validate(cmd.Context(), args, imports)
			if res != nil {
				printSummary(cmd, res)
			}
			return err
		},
	}
	cmd.Flags().StringSlice("import", nil, "dependency documents used for name resolution only")
	return cmd
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <document>",
		Short: "Print the parsed model of one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			return app.Dump(cmd.Context(), args[0], format, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringP("format", "f", formatYAML, "output format (yaml, json)")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Compile the catalog and serve it over HTTP",
		Long: "serve compiles the catalog and exposes it over a read-only HTTP API with\n" +
			"prometheus metrics. SIGHUP recompiles; SIGINT and SIGTERM stop the server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := setup(cmd)
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context())
		},
	}
	cmd.Flags().String("listen-addr", "", "HTTP listen address")
	cmd.Flags().Bool("cors", false, "allow cross-origin reads")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wlscanner\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Generator:  %s\n", generator.Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// setup loads configuration, applies flags and builds the application.
func setup(cmd *cobra.Command) (*App, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	logger := log.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty)
	logger.Debug().
		Str("version", Version).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	logger.Debug().
		Str("config_file", cfgFile).
		Str("manifest", cfg.Catalog.Manifest).
		Strs("collections", cfg.Catalog.Collections).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	return NewApp(cfg, logger.Logger), nil
}

// applyFlags overrides configuration with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if changed("log-pretty") {
		cfg.Log.Pretty, _ = flags.GetBool("log-pretty")
	}

	if changed("manifest") {
		cfg.Catalog.Manifest, _ = flags.GetString("manifest")
	}
	if changed("collection") {
		cfg.Catalog.Collections, _ = flags.GetStringSlice("collection")
	}
	if changed("concurrency") {
		cfg.Catalog.Concurrency, _ = flags.GetInt("concurrency")
	}
	if changed("metrics-textfile") {
		cfg.Metrics.Textfile, _ = flags.GetString("metrics-textfile")
	}

	if changed("output") {
		cfg.Generate.Output, _ = flags.GetString("output")
	}
	if changed("import-path") {
		cfg.Generate.ImportPath, _ = flags.GetString("import-path")
	}
	if changed("runtime-path") {
		cfg.Generate.RuntimePath, _ = flags.GetString("runtime-path")
	}
	if changed("role") {
		cfg.Generate.Roles, _ = flags.GetStringSlice("role")
	}

	if changed("listen-addr") {
		cfg.API.ListenAddr, _ = flags.GetString("listen-addr")
	}
	if changed("cors") {
		cfg.API.CORS, _ = flags.GetBool("cors")
	}

	return cfg.Validate()
}
