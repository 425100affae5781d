package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/shell"
)

func newShellEnvCommand(ctx *commandContext) *cobra.Command {
	var (
		shellName string
		write     bool
		opts      shell.SetupOptions
	)

	cmd := &cobra.Command{
		Use:   "shellenv",
		Short: "Print or install the line that puts managed binaries on PATH",
		Example: `  eval "$(ytpilot shellenv)"
  ytpilot shellenv --write --backup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			manager, err := shell.NewManager(shell.Config{BinDir: cfg.BinPath})
			if err != nil {
				return err
			}

			target := shell.ShellType(shellName)
			if shellName == "" {
				detection := shell.DetectShell()
				if !detection.Shell.IsValid() {
					return fmt.Errorf("could not detect shell, pass --shell (one of %v)", shell.SupportedShells())
				}
				target = detection.Shell
				ctx.logger.Debug("detected shell", "shell", target, "method", detection.Method)
			}

			if !write {
				line, err := manager.PathLine(target)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
				return nil
			}

			res, err := manager.SetupIntegration(target, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case opts.DryRun:
				fmt.Fprintf(out, "Would add to %s:\n%s\n%s\n", res.RCFile, shell.Marker, res.Line)
			case res.Added:
				fmt.Fprintf(out, "Added managed bin directory to %s\n", res.RCFile)
				if res.BackupPath != "" {
					fmt.Fprintf(out, "Backup written to %s\n", res.BackupPath)
				}
			default:
				fmt.Fprintf(out, "%s already puts the managed bin directory on PATH\n", res.RCFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shellName, "shell", "", "Shell to render for: bash, zsh or fish (default: detected)")
	cmd.Flags().BoolVar(&write, "write", false, "Append the line to the shell's rc file")
	cmd.Flags().BoolVar(&opts.Backup, "backup", false, "Back up the rc file before changing it")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Append even if the line is already present")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Show the change without writing")
	return cmd
}
