package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/config"
)

const redacted = "[redacted]"

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigShowCommand(ctx))
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Catalog.Token != "" {
				shown.Catalog.Token = redacted
			}

			if strings.EqualFold(output, "toml") || output == "" {
				if ctx.configPath != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", ctx.configPath)
				}
				data, err := config.EncodeTOML(&shown)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if strings.EqualFold(output, outputTable) {
				return fmt.Errorf("unsupported output format %q (want toml, json or yaml)", output)
			}
			_, err = writeStructured(cmd, output, shown)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "toml", "Output format: toml, json or yaml")
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		format string
		path   string
		force  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if path == "" {
				dir, err := os.UserConfigDir()
				if err != nil {
					return fmt.Errorf("resolve config directory: %w", err)
				}
				path = filepath.Join(dir, "ytpilot", "config."+format)
			}
			dest, err := config.ExpandPath(path)
			if err != nil {
				return err
			}

			cfg := config.Default()
			var data []byte
			switch format {
			case "lua":
				src, err := config.NewGenerator().Generate(&cfg)
				if err != nil {
					return err
				}
				data = []byte(src)
			case "toml":
				if data, err = config.EncodeTOML(&cfg); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported config format %q (want lua or toml)", format)
			}

			if !force {
				if _, err := os.Stat(dest); err == nil {
					return fmt.Errorf("config file %s already exists (use --force to overwrite)", dest)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "toml", "File format: lua or toml")
	cmd.Flags().StringVar(&path, "path", "", "Destination (default <user config dir>/ytpilot/config.<format>)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
