package config

import (
	"regexp"
	"strings"
)

// SensitivePattern represents a pattern that might indicate a hardcoded secret.
type SensitivePattern struct {
	Name    string
	Pattern *regexp.Regexp
}

var sensitivePatterns = []SensitivePattern{
	{
		Name:    "GitHub token",
		Pattern: regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{22,})\b`),
	},
	{
		Name:    "token assignment",
		Pattern: regexp.MustCompile(`(?i)\btoken\s*=\s*['"][^'"\s]{8,}['"]`),
	},
}

// SensitiveDataFinding is one line that looks like it holds a secret.
type SensitiveDataFinding struct {
	PatternName string
	Line        int
	Preview     string
}

// DetectSensitiveData scans config content for hardcoded credentials.
// Comment lines are skipped. At most one finding is reported per line.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding
	for i, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		for _, p := range sensitivePatterns {
			if p.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: p.Name,
					Line:        i + 1,
					Preview:     redactSensitiveValue(trimmed),
				})
				break
			}
		}
	}
	return findings
}

// redactSensitiveValue keeps the key of an assignment and hides the value.
func redactSensitiveValue(line string) string {
	eq := strings.Index(line, "=")
	if eq == -1 {
		if len(line) > 12 {
			return line[:12] + "... [REDACTED]"
		}
		return "[REDACTED]"
	}
	return strings.TrimSpace(line[:eq]) + " = [REDACTED]"
}
