// Package config loads ytpilot settings from Lua or TOML files, applies
// YTPILOT_* environment overrides and validates the result.
//
// # File formats
//
// Two formats are accepted, chosen by extension. TOML:
//
//	timeout = 600
//
//	[ffmpeg]
//	enabled = true
//	prefer_global = true
//
// and Lua, evaluated in a sandboxed gopher-lua VM with a read-only
// `platform` table describing the host:
//
//	ytpilot = {
//	  timeout = platform.is_windows and 600 or 300,
//	  ffmpeg = { prefer_global = platform.is_linux },
//	}
//
// Both formats decode over Default(), reject unknown fields and share the
// same field names.
//
// # Sandbox
//
// The Lua VM has no os, io, debug or module loading, no metatable access and
// no collectgarbage. string, table and math are available. Evaluation is
// bounded by the caller's context, or five seconds when it has no deadline.
//
// # Precedence
//
// Defaults, then the config file, then YTPILOT_* environment variables.
// Command-line flags are applied by the caller after Load.
package config
