package config

import (
	"bytes"
	"fmt"
	"strings"
)

// Generator renders a Config as a Lua config file.
type Generator struct {
	indent string
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{indent: "  "}
}

// Generate renders cfg as Lua. The catalog token is never written; it
// belongs in the environment.
func (g *Generator) Generate(cfg *Config) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("generate config: nil config")
	}

	var buf bytes.Buffer
	buf.WriteString("-- ytpilot configuration\n")
	buf.WriteString("-- The read-only `platform` table is available, e.g.\n")
	buf.WriteString("--   timeout = platform.is_windows and 600 or 300\n\n")
	buf.WriteString(luaGlobalYtpilot + " = {\n")

	g.writeString(&buf, 1, luaFieldDataDir, cfg.DataDir)
	g.writeString(&buf, 1, luaFieldBinPath, cfg.BinPath)
	g.writeLine(&buf, 1, fmt.Sprintf("%s = %d,", luaFieldTimeout, cfg.Timeout))
	g.writeString(&buf, 1, luaFieldDownloadPath, cfg.DownloadPath)
	g.writeBool(&buf, 1, luaFieldInstallLock, cfg.InstallLock)

	g.openTable(&buf, luaFieldYtDlp)
	g.writeString(&buf, 2, luaFieldPath, cfg.YtDlp.Path)
	g.writeString(&buf, 2, luaFieldVersion, cfg.YtDlp.Version)
	g.closeTable(&buf)

	g.openTable(&buf, luaFieldFFmpeg)
	g.writeBool(&buf, 2, luaFieldEnabled, cfg.FFmpeg.Enabled)
	g.writeBool(&buf, 2, luaFieldPreferGlobal, cfg.FFmpeg.PreferGlobal)
	g.writeString(&buf, 2, luaFieldPath, cfg.FFmpeg.Path)
	g.writeString(&buf, 2, luaFieldProbePath, cfg.FFmpeg.ProbePath)
	g.writeString(&buf, 2, luaFieldVersion, cfg.FFmpeg.Version)
	g.closeTable(&buf)

	g.openTable(&buf, luaFieldCatalog)
	g.writeString(&buf, 2, luaFieldAPIBase, cfg.Catalog.APIBase)
	g.writeString(&buf, 2, luaFieldKeyringPath, cfg.Catalog.KeyringPath)
	if cfg.Catalog.Retries > 0 {
		g.writeLine(&buf, 2, fmt.Sprintf("%s = %d,", luaFieldRetries, cfg.Catalog.Retries))
	}
	g.closeTable(&buf)

	g.openTable(&buf, luaFieldLog)
	g.writeString(&buf, 2, luaFieldLevel, cfg.Log.Level)
	g.writeString(&buf, 2, luaFieldFormat, cfg.Log.Format)
	g.closeTable(&buf)

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (g *Generator) writeLine(buf *bytes.Buffer, depth int, line string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(line)
	buf.WriteByte('\n')
}

// writeString skips empty values so defaults stay in effect.
func (g *Generator) writeString(buf *bytes.Buffer, depth int, key, value string) {
	if value == "" {
		return
	}
	g.writeLine(buf, depth, key+" = "+g.quoteLuaString(value)+",")
}

func (g *Generator) writeBool(buf *bytes.Buffer, depth int, key string, value bool) {
	g.writeLine(buf, depth, fmt.Sprintf("%s = %t,", key, value))
}

func (g *Generator) openTable(buf *bytes.Buffer, key string) {
	buf.WriteByte('\n')
	g.writeLine(buf, 1, key+" = {")
}

func (g *Generator) closeTable(buf *bytes.Buffer) {
	g.writeLine(buf, 1, "},")
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
