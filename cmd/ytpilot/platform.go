package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type platformView struct {
	ID               string `json:"id" yaml:"id"`
	OS               string `json:"os" yaml:"os"`
	Arch             string `json:"arch" yaml:"arch"`
	ArchRaw          string `json:"archRaw" yaml:"archRaw"`
	Libc             string `json:"libc" yaml:"libc"`
	Family           string `json:"family,omitempty" yaml:"family,omitempty"`
	ExecutableSuffix string `json:"executableSuffix" yaml:"executableSuffix"`
	BinDir           string `json:"binDir" yaml:"binDir"`
}

func newPlatformCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.newManager(cmd, nil)
			if err != nil {
				return err
			}
			id, err := manager.Platform(cmd.Context())
			if err != nil {
				return err
			}

			view := platformView{
				ID:               id.ID(),
				OS:               id.OS,
				Arch:             id.Arch,
				ArchRaw:          id.ArchRaw,
				Libc:             id.Libc,
				Family:           id.Family,
				ExecutableSuffix: id.ExecutableSuffix(),
				BinDir:           manager.BinDir(),
			}
			if handled, err := writeStructured(cmd, output, view); handled {
				return err
			}

			rows := [][]string{
				{"Platform", view.ID},
				{"OS", view.OS},
				{"Architecture", fmt.Sprintf("%s (%s)", view.Arch, view.ArchRaw)},
				{"C library", view.Libc},
				{"Executable suffix", view.ExecutableSuffix},
				{"Managed bin", view.BinDir},
			}
			if view.Family != "" {
				rows = append(rows, []string{"Distribution family", view.Family})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}

	addOutputFlag(cmd, &output)
	return cmd
}
