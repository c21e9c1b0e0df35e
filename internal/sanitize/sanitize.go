// Package sanitize cleans text crossing trustloop's boundaries: session ids
// that become file names, agent text that is pattern-matched, and messages
// written back into the agent's context by hooks and MCP tools.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxMessageLength is the maximum length of a message injected into the
// agent context.
const MaxMessageLength = 2000

// MaxSessionIDLength is the maximum length of a session id.
const MaxSessionIDLength = 128

// MaxExcerptLength bounds agent text handed to signal patterns.
const MaxExcerptLength = 16 * 1024

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reMarkdownHeading matches markdown headings at the start of a line (# , ## , etc.).
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// reTripleBacktick matches triple (or more) backtick sequences used in code fences.
	reTripleBacktick = regexp.MustCompile("```+")

	// reExcessiveNewlines matches 3 or more consecutive newlines.
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)

	reRepeatedHyphens     = regexp.MustCompile(`-{2,}`)
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// Message sanitizes text that trustloop writes into the agent's context.
// Signal descriptions and pattern names come from user configuration, so
// they are treated as untrusted.
//
// The pipeline runs in this order:
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Strip XML/HTML tags
//  3. Replace markdown headings with list markers
//  4. Collapse triple backticks to single backtick
//  5. Collapse excessive newlines (3+ -> 2)
//  6. Trim leading/trailing whitespace
//  7. Truncate to MaxMessageLength
func Message(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if len(s) > MaxMessageLength {
		s = s[:MaxMessageLength] + "..."
	}
	return s
}

// SessionID reduces a host-supplied session id to [a-zA-Z0-9-_] so it can
// name a file. Repeated hyphens and underscores are collapsed. An id with no
// usable characters sanitizes to "".
func SessionID(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")

	if len(s) > MaxSessionIDLength {
		s = s[:MaxSessionIDLength]
	}
	return s
}

// Excerpt strips control characters and keeps the last max bytes of input.
// The tail is kept because completion claims and hedges usually close a
// reply.
func Excerpt(input string, max int) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input)
	if max > 0 && len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F) from the string,
// except for newline (0x0A) and tab (0x09) which are preserved.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
