package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/binary"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	var (
		check   bool
		version string
	)

	cmd := &cobra.Command{
		Use:   "update [yt-dlp|ffmpeg|ffprobe|all]...",
		Short: "Install newer releases of managed binaries",
		Long: `Resolve the newest release matching the configured version hint (or --version)
and reinstall when it differs from the managed install.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			progress := newProgressUI(cmd.OutOrStdout())
			manager, err := ctx.newManager(cmd, progress.callbacks())
			if err != nil {
				return err
			}
			targets, err := parseTargets(args, manager.Required())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range targets {
				prov, err := manager.Provisioner(name)
				if err != nil {
					return err
				}

				hint := version
				if hint == "" {
					hint = cfg.YtDlp.Version
					if name != binary.BinaryYtDlp {
						hint = cfg.FFmpeg.Version
					}
				}

				status, err := prov.CheckUpdate(cmd.Context(), hint)
				if err != nil {
					return err
				}

				current := "none"
				if status.HasInstalled {
					current = status.Installed.Version
				}
				if !status.UpdateAvailable {
					fmt.Fprintf(out, "%s %s is up to date\n", name, current)
					continue
				}
				if check {
					fmt.Fprintf(out, "%s %s -> %s available\n", name, current, status.Available.Version)
					continue
				}

				entry, err := prov.InstallAsset(cmd.Context(), status.Available)
				progress.finish(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Updated %s %s -> %s\n", name, current, entry.Version)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only report available updates")
	cmd.Flags().StringVar(&version, "version", "", "Version hint overriding the configuration")
	return cmd
}
