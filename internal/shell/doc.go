// Package shell puts the managed bin directory on the user's PATH.
//
// It detects the user's shell (bash, zsh or fish), renders the line that
// prepends the bin directory to PATH, and can append that line to the
// shell's rc file:
//
//	# ytpilot: managed yt-dlp and ffmpeg binaries
//	export PATH='/home/me/.config/ytpilot/bin':"$PATH"
//
// # Shell Detection
//
//  1. $SHELL environment variable
//  2. Parent process name, read with gopsutil
//
// # RC File Management
//
//   - bash: ~/.bashrc
//   - zsh: ~/.zshrc
//   - fish: ~/.config/fish/config.fish
//
// Modifications are idempotent (an existing marker line is detected),
// optionally backed up, and written through a temp file and rename.
// Symlinked rc files are refused.
package shell
