package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/simp-lee/tr2epub"
	"github.com/simp-lee/tr2epub/internal/config"
)

type options struct {
	output      string
	packageOnly bool
	trace       bool
	configPath  string
}

func newRootCommand() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "tr2epub <collection-config>",
		Short: "Bundle technical reports into one EPUB 3 collection",
		Long: "tr2epub reads a collection descriptor (JSON or YAML, by path or URL), renders\n" +
			"every chapter into an EPUB, and merges them into <id>.epub.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts)
		},
	}

	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (overrides output.dir)")
	rootCmd.Flags().BoolVarP(&opts.packageOnly, "package", "p", false, "Print the package document and stop")
	rootCmd.Flags().BoolVarP(&opts.trace, "trace", "t", false, "Log every chapter as it is extracted")
	rootCmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newConfigCommand())
	return rootCmd
}

func run(cmd *cobra.Command, location string, opts options) error {
	cfg, _, _, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.output != "" {
		abs, err := filepath.Abs(opts.output)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Output.Dir = abs
	}
	if opts.trace {
		cfg.Logging.Level = "debug"
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging)

	ctx := cmd.Context()
	collCfg, err := epub.LoadCollectionConfig(ctx, location)
	if err != nil {
		return err
	}

	conv := &epub.ArchiveConverter{
		Endpoint: cfg.Converter.Endpoint,
		Client:   &http.Client{Timeout: cfg.FetchTimeout()},
	}
	assembler := epub.NewAssembler(conv,
		epub.WithLogger(logger),
		epub.WithPublishingHost(cfg.Publishing.Host),
	)

	if opts.packageOnly {
		coll, err := assembler.Assemble(ctx, collCfg)
		if err != nil {
			return err
		}
		opf, err := coll.PackageDocument()
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), opf)
		return err
	}

	c, err := assembler.Build(ctx, collCfg)
	if err != nil {
		return err
	}
	data, err := c.Bytes()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", cfg.Output.Dir, err)
	}
	out := cfg.OutputPath(c.Name())
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("wrote collection", slog.String("path", out), slog.Int("bytes", len(data)))
	return nil
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage tr2epub settings",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(config.Sample()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}
