package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/binary"
)

func newLocateCommand(ctx *commandContext) *cobra.Command {
	var explicit string

	cmd := &cobra.Command{
		Use:   "locate <binary>",
		Short: "Show which executable would be used, without installing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := binary.ParseBinary(args[0])
			if err != nil {
				return err
			}
			manager, err := ctx.newManager(cmd, nil)
			if err != nil {
				return err
			}

			path, source, ok := manager.Locate(name, explicit)
			if !ok {
				return &binary.BinaryNotFoundError{Binary: name, ExplicitPath: explicit}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, source)
			return nil
		},
	}

	cmd.Flags().StringVar(&explicit, "path", "", "Explicit executable path to check first")
	return cmd
}
