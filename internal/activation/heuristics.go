package activation

import (
	"regexp"
	"strings"

	"github.com/nvandessel/trustloop/internal/constants"
	"github.com/nvandessel/trustloop/internal/models"
	"github.com/nvandessel/trustloop/internal/utils"
)

var (
	testCommand  = regexp.MustCompile(`(^|[;&|]\s*|\s)(go test|npm (run )?test|yarn test|pnpm test|pytest|python -m pytest|cargo test|make test|jest|vitest|mvn test|gradle test)\b`)
	buildCommand = regexp.MustCompile(`(^|[;&|]\s*|\s)(go build|npm run build|yarn build|pnpm build|cargo build|make( all)?\s*($|[;&|])|tsc\b|mvn (package|compile)|gradle build)`)
	lintCommand  = regexp.MustCompile(`(^|[;&|]\s*|\s)(golangci-lint|go vet|eslint|npm run lint|ruff|flake8|pylint|cargo clippy|staticcheck)\b`)

	testFailure  = regexp.MustCompile(`(?m)^(--- FAIL|FAIL\b)|\b\d+ (failed|failing)\b|\bFAILED\b|Tests?:\s+\d+ failed|panic: `)
	buildFailure = regexp.MustCompile(`(?im)\berror(\[E\d+\])?:|cannot find package|undefined: |\bbuild failed\b|compilation failed`)
	lintFailure  = regexp.MustCompile(`(?m)^\S+:\d+(:\d+)?:|\b\d+ (problems?|issues?|errors?)\b`)

	placeholder = regexp.MustCompile(`(?im)\b(TODO|FIXME|XXX)\b|not implemented|panic\("unimplemented|raise NotImplementedError|//\s*\.\.\.\s*(rest|existing|remaining)|^\s*\.\.\.\s*$`)
)

// DetectFlags derives the boolean flags for c from the command, its output
// and the content being written. It reads nothing but c.
func DetectFlags(c models.Context) models.Flags {
	var f models.Flags

	if cmd := c.Command; cmd != "" && c.ToolName == "Bash" {
		out := c.ToolResult
		switch {
		case testCommand.MatchString(cmd):
			failed := c.ToolFailed || testFailure.MatchString(out)
			f.TestsFailed = failed
			f.TestsPassed = !failed
		case buildCommand.MatchString(cmd):
			failed := c.ToolFailed || buildFailure.MatchString(out)
			f.BuildFailed = failed
			f.BuildSucceeded = !failed
		case lintCommand.MatchString(cmd):
			f.LintPassed = !c.ToolFailed && !lintFailure.MatchString(out)
		}
	}

	if c.IsWrite() && !c.ToolFailed {
		content := writtenContent(c)
		f.LargeDiff = countLines(content) > constants.LargeDiffLines
		f.PlaceholderCode = placeholder.MatchString(content)
	}

	f.SerenaActivated = strings.HasPrefix(c.ToolName, "mcp__serena__")
	return f
}

// writtenContent returns the text a Write/Edit/MultiEdit call puts on disk.
func writtenContent(c models.Context) string {
	in := c.ToolInput
	switch c.ToolName {
	case "Write":
		return utils.GetString(in, "content", "")
	case "Edit":
		return utils.GetString(in, "new_string", "")
	case "NotebookEdit":
		return utils.GetString(in, "new_source", "")
	case "MultiEdit":
		edits, _ := in["edits"].([]interface{})
		var b strings.Builder
		for _, e := range edits {
			if m, ok := e.(map[string]interface{}); ok {
				b.WriteString(utils.GetString(m, "new_string", ""))
				b.WriteByte('\n')
			}
		}
		return b.String()
	}
	return ""
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimRight(s, "\n"), "\n") + 1
}
