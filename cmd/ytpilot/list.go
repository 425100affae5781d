package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/binary"
)

type installedView struct {
	Binary      string    `json:"binary" yaml:"binary"`
	Version     string    `json:"version" yaml:"version"`
	Path        string    `json:"path" yaml:"path"`
	InstalledAt time.Time `json:"installedAt" yaml:"installedAt"`
	Checksum    *string   `json:"checksum" yaml:"checksum"`
	Platform    string    `json:"platform,omitempty" yaml:"platform,omitempty"`
	Healthy     bool      `json:"healthy" yaml:"healthy"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List managed installs recorded in the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.newManager(cmd, nil)
			if err != nil {
				return err
			}
			entries, err := manager.Installed()
			if err != nil {
				return err
			}

			views := make([]installedView, 0, len(entries))
			for _, e := range binary.SortedEntries(entries) {
				views = append(views, installedView{
					Binary:      e.Binary.String(),
					Version:     e.Version,
					Path:        e.Path,
					InstalledAt: e.InstalledAt,
					Checksum:    e.Checksum,
					Platform:    e.Platform,
					Healthy:     manager.Healthy(e),
				})
			}

			if handled, err := writeStructured(cmd, output, views); handled {
				return err
			}

			if len(views) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No managed binaries in %s\n", manager.ManifestPath())
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					v.Binary,
					v.Version,
					v.Path,
					v.InstalledAt.Local().Format(time.DateTime),
					yesNo(v.Healthy),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Binary", "Version", "Path", "Installed", "Healthy"}, rows))
			return nil
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}
