package changeset

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// UnifiedDiff renders a 3-line-context unified diff between the shell-quoted
// before and after values of one change-set property.
func UnifiedDiff(path, before, after string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(ShellEscape(before)),
		B:        difflib.SplitLines(ShellEscape(after)),
		FromFile: path + " (before)",
		ToFile:   path + " (after)",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// FilterDiff pipes rendered diff text through a configurable external
// filter command (e.g. "delta", "diff-so-fancy"); an empty command returns
// the diff unchanged.
func FilterDiff(diffText string, filterCommand string, run func(cmd string, stdin string) (string, error)) (string, error) {
	if strings.TrimSpace(filterCommand) == "" {
		return diffText, nil
	}
	return run(filterCommand, diffText)
}
