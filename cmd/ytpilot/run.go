package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytpilot/ytpilot/internal/binary"
	"github.com/ytpilot/ytpilot/internal/process"
)

const ffmpegLocationFlag = "--ffmpeg-location"

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		timeout time.Duration
		dir     string
	)

	cmd := &cobra.Command{
		Use:   "run <binary> [-- args...]",
		Short: "Provision a binary if needed, then run it",
		Long: `Run yt-dlp, ffmpeg or ffprobe, installing it first when no usable
executable is found. Output is streamed line by line and the child's exit
code becomes ytpilot's exit code.

For yt-dlp, ffmpeg is provisioned too (unless disabled in the config) and
passed with --ffmpeg-location.`,
		Example: `  ytpilot run yt-dlp -- -f bestaudio https://example.com/watch?v=abc
  ytpilot run --timeout 10m --dir ~/Downloads yt-dlp -- https://example.com/watch?v=abc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			name, err := binary.ParseBinary(args[0])
			if err != nil {
				return err
			}

			progress := newProgressUI(cmd.ErrOrStderr())
			manager, err := ctx.newManager(cmd, progress.callbacks())
			if err != nil {
				return err
			}

			exe, err := manager.Ensure(cmd.Context(), name)
			progress.finish(name)
			if err != nil {
				return err
			}
			childArgs := slices.Clone(args[1:])
			if len(childArgs) > 0 && childArgs[0] == "--" {
				childArgs = childArgs[1:]
			}

			if name == binary.BinaryYtDlp && cfg.FFmpeg.Enabled && !hasFlag(childArgs, ffmpegLocationFlag) {
				paths, err := manager.EnsureInstalled(cmd.Context())
				for _, n := range manager.Required() {
					progress.finish(n)
				}
				if err != nil {
					return err
				}
				if ffmpeg, ok := paths[binary.BinaryFFmpeg]; ok {
					childArgs = append([]string{ffmpegLocationFlag, filepath.Dir(ffmpeg)}, childArgs...)
				}
			}

			if timeout <= 0 {
				timeout = time.Duration(cfg.Timeout) * time.Second
			}
			if dir == "" {
				dir = cfg.DownloadPath
			}

			stdout := cmd.OutOrStdout()
			stderr := cmd.ErrOrStderr()
			runner := process.NewRunner(process.WithLogger(ctx.logger))
			res, err := runner.Run(cmd.Context(), process.Command{
				Args:      append([]string{exe}, childArgs...),
				Dir:       dir,
				Timeout:   timeout,
				OnLine:    func(line string) { fmt.Fprintln(stdout, line) },
				OnErrLine: func(line string) { fmt.Fprintln(stderr, line) },
			})
			if err != nil {
				return err
			}

			switch {
			case res.Success:
				return nil
			case res.TimedOut:
				return res.Err()
			default:
				return &exitCodeError{code: res.ExitCode}
			}
		},
	}

	// Everything after the binary name belongs to the child.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Kill the process tree after this long (default from config)")
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory, created when missing (default from config)")
	return cmd
}

// hasFlag reports whether args already carry flag, as "--flag v" or "--flag=v".
func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == flag || strings.HasPrefix(a, flag+"=") {
			return true
		}
	}
	return false
}
