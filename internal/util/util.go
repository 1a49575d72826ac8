package util

import (
	"os"
	"strings"
	"unicode/utf8"

	"chatrunner/internal/core"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// MarshalJSON wraps Sonic for performance
func MarshalJSON(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// NewRunID generates a prefixed random run ID
func NewRunID() string {
	return core.RunIDPrefix + uuid.New().String()
}

// TruncateString truncates string and adds replacement text in the middle
func TruncateString(s string, prefixLen, suffixLen int, replacement string) string {
	if len(s) > prefixLen+suffixLen {
		return s[:prefixLen] + replacement + s[len(s)-suffixLen:]
	}
	return s
}

// MaskSecret keeps only the trailing characters of a credential for logging
func MaskSecret(secret string) string {
	if secret == "" {
		return "<empty>"
	}
	if len(secret) <= core.APIKeyVisibleSuffixLen*2 {
		return strings.Repeat("*", len(secret))
	}
	return TruncateString(secret, 0, core.APIKeyVisibleSuffixLen, "...")
}

// CharCount counts runes, not bytes
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// ParseEnvList parses comma-separated env var to trimmed slice
func ParseEnvList(envVar string) []string {
	if envVar == "" {
		return nil
	}
	parts := strings.Split(envVar, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// GetEnvWithDefault gets env var with default value
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
