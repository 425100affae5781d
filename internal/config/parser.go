package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ytpilot/ytpilot/internal/platform"
)

const (
	// maxConfigSize bounds config files read from disk.
	maxConfigSize = 10 << 20

	// defaultParseTimeout applies when the caller's context has no deadline.
	defaultParseTimeout = 5 * time.Second
)

// Parser evaluates Lua config files with the host's platform table injected.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser. A nil detector leaves the
// platform table undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and parses a Lua config file on top of the defaults.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses Lua config code on top of the defaults.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	cfg := Default()
	if err := p.parseInto(ctx, luaCode, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *Parser) parseInto(ctx context.Context, luaCode string, cfg *Config) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		id, err := p.detector.Detect(ctx)
		if err != nil {
			return fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, id); err != nil {
			return fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &ParseError{Message: "config evaluation aborted", Detail: ctxErr.Error(), Err: ctxErr}
		}
		return &ParseError{Message: "Lua syntax error", Detail: err.Error(), Err: err}
	}

	return extractConfig(L, cfg)
}

// ParseError represents a config parsing error with a friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatError formats a ParseError for user display. Outside verbose mode
// the Lua stack traceback is dropped.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}

// extractConfig copies the global "ytpilot" table into cfg. Fields the
// table leaves unset keep their current values.
func extractConfig(L *lua.LState, cfg *Config) error {
	root := L.GetGlobal(luaGlobalYtpilot)
	if root.Type() != lua.LTTable {
		return &ParseError{
			Message: "missing or invalid 'ytpilot' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	if err := checkKeys(table, "",
		luaFieldDataDir, luaFieldBinPath, luaFieldTimeout, luaFieldDownloadPath, luaFieldInstallLock,
		luaFieldYtDlp, luaFieldFFmpeg, luaFieldCatalog, luaFieldLog); err != nil {
		return err
	}

	steps := []error{
		getString(table, "", luaFieldDataDir, &cfg.DataDir),
		getString(table, "", luaFieldBinPath, &cfg.BinPath),
		getInt(table, "", luaFieldTimeout, &cfg.Timeout),
		getString(table, "", luaFieldDownloadPath, &cfg.DownloadPath),
		getBool(table, "", luaFieldInstallLock, &cfg.InstallLock),
	}
	for _, err := range steps {
		if err != nil {
			return err
		}
	}

	sections := []struct {
		name    string
		extract func(*lua.LTable) error
	}{
		{luaFieldYtDlp, func(t *lua.LTable) error { return extractYtDlp(t, &cfg.YtDlp) }},
		{luaFieldFFmpeg, func(t *lua.LTable) error { return extractFFmpeg(t, &cfg.FFmpeg) }},
		{luaFieldCatalog, func(t *lua.LTable) error { return extractCatalog(t, &cfg.Catalog) }},
		{luaFieldLog, func(t *lua.LTable) error { return extractLog(t, &cfg.Log) }},
	}
	for _, s := range sections {
		val := table.RawGetString(s.name)
		switch val.Type() {
		case lua.LTNil:
			continue
		case lua.LTTable:
			if err := s.extract(val.(*lua.LTable)); err != nil {
				return err
			}
		default:
			return typeError("", s.name, "table", val)
		}
	}
	return nil
}

func extractYtDlp(t *lua.LTable, dst *YtDlpConfig) error {
	if err := checkKeys(t, luaFieldYtDlp, luaFieldPath, luaFieldVersion); err != nil {
		return err
	}
	return errors.Join(
		getString(t, luaFieldYtDlp, luaFieldPath, &dst.Path),
		getString(t, luaFieldYtDlp, luaFieldVersion, &dst.Version),
	)
}

func extractFFmpeg(t *lua.LTable, dst *FFmpegConfig) error {
	if err := checkKeys(t, luaFieldFFmpeg,
		luaFieldPath, luaFieldProbePath, luaFieldVersion, luaFieldPreferGlobal, luaFieldEnabled); err != nil {
		return err
	}
	return errors.Join(
		getString(t, luaFieldFFmpeg, luaFieldPath, &dst.Path),
		getString(t, luaFieldFFmpeg, luaFieldProbePath, &dst.ProbePath),
		getString(t, luaFieldFFmpeg, luaFieldVersion, &dst.Version),
		getBool(t, luaFieldFFmpeg, luaFieldPreferGlobal, &dst.PreferGlobal),
		getBool(t, luaFieldFFmpeg, luaFieldEnabled, &dst.Enabled),
	)
}

func extractCatalog(t *lua.LTable, dst *CatalogConfig) error {
	if err := checkKeys(t, luaFieldCatalog,
		luaFieldAPIBase, luaFieldToken, luaFieldKeyringPath, luaFieldRetries); err != nil {
		return err
	}
	return errors.Join(
		getString(t, luaFieldCatalog, luaFieldAPIBase, &dst.APIBase),
		getString(t, luaFieldCatalog, luaFieldToken, &dst.Token),
		getString(t, luaFieldCatalog, luaFieldKeyringPath, &dst.KeyringPath),
		getInt(t, luaFieldCatalog, luaFieldRetries, &dst.Retries),
	)
}

func extractLog(t *lua.LTable, dst *LogConfig) error {
	if err := checkKeys(t, luaFieldLog, luaFieldLevel, luaFieldFormat); err != nil {
		return err
	}
	return errors.Join(
		getString(t, luaFieldLog, luaFieldLevel, &dst.Level),
		getString(t, luaFieldLog, luaFieldFormat, &dst.Format),
	)
}

// checkKeys rejects keys outside allowed so typos do not pass silently.
func checkKeys(t *lua.LTable, section string, allowed ...string) error {
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}
	var unknown []string
	t.ForEach(func(key, _ lua.LValue) {
		if name, ok := key.(lua.LString); !ok || !known[string(name)] {
			unknown = append(unknown, qualify(section, key.String()))
		}
	})
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ParseError{
		Message: "unknown config field",
		Detail:  strings.Join(unknown, ", "),
	}
}

func getString(t *lua.LTable, section, key string, dst *string) error {
	val := t.RawGetString(key)
	switch v := val.(type) {
	case *lua.LNilType:
		return nil
	case lua.LString:
		*dst = string(v)
		return nil
	}
	return typeError(section, key, "string", val)
}

func getBool(t *lua.LTable, section, key string, dst *bool) error {
	val := t.RawGetString(key)
	switch v := val.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		*dst = bool(v)
		return nil
	}
	return typeError(section, key, "boolean", val)
}

func getInt(t *lua.LTable, section, key string, dst *int) error {
	val := t.RawGetString(key)
	switch v := val.(type) {
	case *lua.LNilType:
		return nil
	case lua.LNumber:
		f := float64(v)
		if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
			return &ParseError{
				Message: "invalid config value",
				Detail:  fmt.Sprintf("%s: expected integer, got %v", qualify(section, key), f),
			}
		}
		*dst = int(f)
		return nil
	}
	return typeError(section, key, "integer", val)
}

func typeError(section, key, want string, got lua.LValue) error {
	return &ParseError{
		Message: "invalid config value",
		Detail:  fmt.Sprintf("%s: expected %s, got %s", qualify(section, key), want, got.Type()),
	}
}

func qualify(section, key string) string {
	if section == "" {
		return key
	}
	return section + "." + key
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config %s is %d bytes, limit is %d", path, info.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return data, nil
}
