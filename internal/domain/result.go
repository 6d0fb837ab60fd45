package domain

import "fmt"

// Log line prefixes. Consumers classify severity from the prefix and must
// not rely on free-text content.
const (
	LogPrefixOK   = "[OK] "
	LogPrefixWarn = "[!] "
)

// ResultLog accumulates ordered, severity-tagged log lines for an
// OperationResult. Informational lines carry no prefix.
type ResultLog struct {
	lines []string
}

// OK appends a success line.
func (l *ResultLog) OK(format string, args ...any) {
	l.lines = append(l.lines, LogPrefixOK+fmt.Sprintf(format, args...))
}

// Warn appends a warning line.
func (l *ResultLog) Warn(format string, args ...any) {
	l.lines = append(l.lines, LogPrefixWarn+fmt.Sprintf(format, args...))
}

// Info appends an untagged informational line.
func (l *ResultLog) Info(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

// Extend appends already-tagged lines from a sub-operation in order.
func (l *ResultLog) Extend(lines []string) {
	l.lines = append(l.lines, lines...)
}

// Lines returns the accumulated lines in append order.
func (l *ResultLog) Lines() []string {
	if l.lines == nil {
		return []string{}
	}
	return l.lines
}
