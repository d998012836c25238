package batch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/migreview/internal/models"
)

// ErrInvalidPattern is returned when a find-and-replace regex does not compile.
var ErrInvalidPattern = errors.New("invalid regular expression")

// matcher rewrites one statement's text.
type matcher func(text string) (string, bool)

// FindAndReplace rewrites the translated text of every statement.
//
// Literal mode replaces only the first occurrence per statement. Regex mode
// also replaces only the first match unless the pattern is written as
// /body/flags and the flags contain g. The pattern is compiled before any
// statement is touched; a compile failure leaves b as it was.
func FindAndReplace(b models.Batch, pattern, replacement string, isRegex bool) (models.Batch, int, error) {
	if pattern == "" {
		return b, 0, nil
	}

	var m matcher
	if isRegex {
		re, global, err := compilePattern(pattern)
		if err != nil {
			return b, 0, err
		}
		m = regexMatcher(re, replacement, global)
	} else {
		m = func(text string) (string, bool) {
			if !strings.Contains(text, pattern) {
				return text, false
			}
			return strings.Replace(text, pattern, replacement, 1), true
		}
	}

	out := withStatements(b)
	changed := 0
	for i, stmt := range out.ImportMetadata.Statements {
		text, ok := m(stmt.Cockroach)
		if !ok || text == stmt.Cockroach {
			continue
		}
		stmt = stmt.Clone()
		stmt.Cockroach = text
		out.ImportMetadata.Statements[i] = stmt
		changed++
	}
	return out, changed, nil
}

// compilePattern accepts either a bare Go regular expression or a
// /body/flags literal. Supported flags: g (replace all), i, m, s.
func compilePattern(pattern string) (*regexp.Regexp, bool, error) {
	body, flags := pattern, ""
	if strings.HasPrefix(pattern, "/") {
		if end := strings.LastIndex(pattern, "/"); end > 0 && strings.Trim(pattern[end+1:], "gims") == "" {
			body, flags = pattern[1:end], pattern[end+1:]
		}
	}

	global := strings.Contains(flags, "g")
	inline := strings.ReplaceAll(flags, "g", "")
	if inline != "" {
		body = "(?" + dedupe(inline) + ")" + body
	}

	re, err := regexp.Compile(body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, global, nil
}

func dedupe(flags string) string {
	var sb strings.Builder
	for _, r := range flags {
		if !strings.ContainsRune(sb.String(), r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func regexMatcher(re *regexp.Regexp, replacement string, global bool) matcher {
	if global {
		return func(text string) (string, bool) {
			if !re.MatchString(text) {
				return text, false
			}
			return re.ReplaceAllString(text, replacement), true
		}
	}
	return func(text string) (string, bool) {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			return text, false
		}
		expanded := re.ExpandString(nil, replacement, text, loc)
		return text[:loc[0]] + string(expanded) + text[loc[1]:], true
	}
}
