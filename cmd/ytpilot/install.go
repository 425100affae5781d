package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/binary"
)

func newInstallCommand(ctx *commandContext) *cobra.Command {
	var (
		version string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "install [yt-dlp|ffmpeg|ffprobe|all]...",
		Short: "Install managed binaries for this platform",
		Long: `Install yt-dlp and, unless disabled in the configuration, ffmpeg and ffprobe.

A binary that is already available (configured path, managed install or PATH)
is left alone unless --force or --version is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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

				if force || version != "" {
					entry, err := prov.Upgrade(cmd.Context(), version)
					progress.finish(name)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Installed %s %s at %s\n", name, entry.Version, entry.Path)
					continue
				}

				path, err := manager.Ensure(cmd.Context(), name)
				progress.finish(name)
				if err != nil {
					return err
				}
				_, source, _ := manager.Locate(name, "")
				fmt.Fprintf(out, "%s ready at %s (%s)\n", name, path, source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Release tag or semver constraint to install")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinstall even if the binary is already available")
	return cmd
}

func newUninstallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <binary>...",
		Short: "Remove managed installs",
		Long:  "Remove managed binaries and their manifest entries. Binaries outside the managed bin directory are never deleted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.newManager(cmd, nil)
			if err != nil {
				return err
			}
			targets, err := parseTargets(args, binary.Binaries)
			if err != nil {
				return err
			}
			for _, name := range targets {
				prov, err := manager.Provisioner(name)
				if err != nil {
					return err
				}
				if err := prov.Uninstall(); err != nil {
					return fmt.Errorf("uninstall %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Uninstalled %s\n", name)
			}
			return nil
		},
	}
}
