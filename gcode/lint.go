package gcode

import (
	"fmt"
	"strings"

	gocnc "github.com/joushou/gocnc/gcode"
)

// LintIssue is a line that a strict G-code parser rejected.
type LintIssue struct {
	Line int
	Text string
	Err  error
}

func (l LintIssue) String() string {
	return fmt.Sprintf("line %d: %q: %v", l.Line+1, l.Text, l.Err)
}

// Lint checks each command against a full G-code parser.
//
// The device accepts a looser dialect than the parser, so issues
// are advisory and never stop a program from being sent.
func Lint(p Program) []LintIssue {
	var issues []LintIssue
	for i, line := range p {
		s := strings.TrimSpace(line)
		if s == "" || strings.HasPrefix(s, ";") {
			continue
		}
		if _, err := gocnc.Parse(s); err != nil {
			issues = append(issues, LintIssue{Line: i, Text: line, Err: err})
		}
	}
	return issues
}
