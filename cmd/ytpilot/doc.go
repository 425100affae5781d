// Command ytpilot provisions yt-dlp, ffmpeg and ffprobe for the current
// platform and runs them with a bounded timeout.
//
// Usage:
//
//	ytpilot install [yt-dlp|ffmpeg|ffprobe|all] [--version v] [--force]
//	ytpilot update [binary] [--check]
//	ytpilot uninstall <binary>
//	ytpilot locate <binary> [--path p]
//	ytpilot list [-o table|json|yaml]
//	ytpilot platform [-o table|json|yaml]
//	ytpilot run [--timeout d] [--dir d] <binary> [-- args...]
//	ytpilot config show | config init [--format lua|toml]
//	ytpilot shellenv [--shell bash|zsh|fish] [--write]
//	ytpilot version
package main
