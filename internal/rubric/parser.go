// Package rubric extracts rubric item names from expert-authored free text
// and builds the editable Task 2 item list from them.
package rubric

import (
	"regexp"
	"strings"
)

// Source records which tier produced a Result.
type Source string

const (
	SourceTagged   Source = "tagged"
	SourceBulleted Source = "bulleted"
	SourceNone     Source = "none"
)

var (
	sectionPattern = regexp.MustCompile(`(?is)<rubrics>(.*?)</rubrics>`)
	namePattern    = regexp.MustCompile(`(?s)<name>(.*?)</name>`)
	bulletPattern  = regexp.MustCompile(`^(?:\d+[.):]|[-*•])\s+(.*)$`)
)

// Result is the outcome of ParseNames. Names holds no empty strings and is
// empty exactly when Source is SourceNone.
type Result struct {
	Names  []string `json:"names"`
	Source Source   `json:"source"`
}

// Empty reports whether no names were found.
func (r Result) Empty() bool {
	return len(r.Names) == 0
}

// ParseNames returns the rubric item names found in text, in document order.
// Tagged <name> markers win; numbered or bulleted lines are the fallback.
// It never fails: unusable input yields an empty Result.
func ParseNames(text string) Result {
	if names := parseTagged(text); len(names) > 0 {
		return Result{Names: names, Source: SourceTagged}
	}
	if names := parseBulleted(text); len(names) > 0 {
		return Result{Names: names, Source: SourceBulleted}
	}
	return Result{Names: []string{}, Source: SourceNone}
}

// parseTagged collects <name> markers inside <rubrics> sections. Text without
// any <rubrics> section is scanned as a whole.
func parseTagged(text string) []string {
	sections := sectionPattern.FindAllStringSubmatch(text, -1)
	if len(sections) == 0 {
		return collectNames(text)
	}

	var names []string
	for _, section := range sections {
		names = append(names, collectNames(section[1])...)
	}
	return names
}

func collectNames(text string) []string {
	var names []string
	for _, m := range namePattern.FindAllStringSubmatch(text, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// parseBulleted treats every line starting with "1.", "2)", "3:", "-", "*"
// or "•" followed by whitespace as an item.
func parseBulleted(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		m := bulletPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		if name := strings.TrimSpace(m[1]); name != "" {
			names = append(names, name)
		}
	}
	return names
}
