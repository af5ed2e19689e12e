package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorAdded   = color.New(color.FgGreen).SprintFunc()
	colorRemoved = color.New(color.FgRed).SprintFunc()
	colorHunk    = color.New(color.FgCyan).SprintFunc()
	colorHeader  = color.New(color.Bold).SprintFunc()
)

// colorizeDiff colors the lines of a unified diff by their prefix.
// Line breaks stay outside the colored spans.
func colorizeDiff(diff string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		text, eol := strings.CutSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
			text = colorHeader(text)
		case strings.HasPrefix(text, "@@"):
			text = colorHunk(text)
		case strings.HasPrefix(text, "+"):
			text = colorAdded(text)
		case strings.HasPrefix(text, "-"):
			text = colorRemoved(text)
		}
		sb.WriteString(text)
		if eol {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

var fileNameReplacer = strings.NewReplacer("<", "_", ">", "_", "/", "_", "\\", "_", "$", "_", " ", "_")

// sanitize makes a method name safe for use in a file name.
func sanitize(name string) string {
	return fileNameReplacer.Replace(name)
}
