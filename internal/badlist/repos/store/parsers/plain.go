// Package parsers reads the newline-delimited list files the curated
// feeds are distributed as.
package parsers

import (
	"bufio"
	"io"
	"strings"

	logpkg "github.com/haukened/badlist/internal/badlist/common/log"
)

// ParseLinkList parses a newline-delimited list of URL substrings.
//
// Behavior:
// - Supports comments starting with '#' (inline or whole-line)
// - Trims surrounding whitespace and strips a leading BOM
// - Lower-cases entries; the feeds are curated lowercase and message
//   links are lowercased before matching
// - Skips empty lines and de-duplicates preserving first-seen order
func ParseLinkList(r io.Reader, logger logpkg.Logger) ([]string, error) {
	return parse(r, logger, func(s string) (string, bool) {
		return strings.ToLower(s), true
	})
}

// ParseHashList parses a newline-delimited list of MD5 hex digests,
// skipping anything that is not 32 hex characters.
func ParseHashList(r io.Reader, logger logpkg.Logger) ([]string, error) {
	return parse(r, logger, func(s string) (string, bool) {
		s = strings.ToLower(s)
		return s, isHexDigest(s)
	})
}

func parse(r io.Reader, logger logpkg.Logger, norm func(string) (string, bool)) ([]string, error) {
	scanner := bufio.NewScanner(r)
	seen := make(map[string]struct{})
	out := make([]string, 0, 256)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimPrefix(scanner.Text(), "\uFEFF")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		// Strip inline comments.
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}

		entry, ok := norm(strings.TrimSpace(line))
		if !ok {
			logger.Debug(map[string]any{"line": lineNum}, "skip_invalid_entry")
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		out = append(out, entry)
		seen[entry] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	logger.Debug(map[string]any{"count": len(out)}, "parse_list_done")
	return out, nil
}

func isHexDigest(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
