// Package security provides validation, sanitization, and limits for the cron package.
package security

import (
	"crypto/subtle"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdziat/simple-durable-cron/pkg/core"
)

// Security limits and configuration
const (
	// MaxJobCodeLength is the maximum length for job codes
	MaxJobCodeLength = 255

	// MaxJobArgsSize is the maximum size in bytes for encoded job arguments (1MB)
	MaxJobArgsSize = 1 << 20

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096

	// MaxStackTraceLength is the maximum length for stored stack traces
	MaxStackTraceLength = 16384
)

// ValidateJobCode validates a registry job code. Any printable UTF-8 text
// is accepted as long as it is not blank.
func ValidateJobCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return core.ErrInvalidJobCode
	}
	if len(code) > MaxJobCodeLength {
		return core.ErrJobCodeTooLong
	}
	if !utf8.ValidString(code) {
		return core.ErrInvalidJobCode
	}
	for _, r := range code {
		if unicode.IsControl(r) {
			return core.ErrInvalidJobCode
		}
	}
	return nil
}

// ValidateArgs checks that args encode to JSON within MaxJobArgsSize.
func ValidateArgs(args []any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	if len(b) > MaxJobArgsSize {
		return core.ErrJobArgsTooLarge
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	return sanitize(msg, MaxErrorMessageLength)
}

// SanitizeStackTrace truncates and sanitizes stack traces for storage
func SanitizeStackTrace(trace string) string {
	return sanitize(trace, MaxStackTraceLength)
}

func sanitize(msg string, limit int) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > limit {
		runes := []rune(result)
		result = string(runes[:limit-3]) + "..."
	}

	return result
}

// ClampMinutes ensures a minute-valued option is not negative
func ClampMinutes(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// VerifyToken compares a presented token against the configured one in
// constant time. An empty expected token never verifies.
func VerifyToken(expected, presented string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
