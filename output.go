package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

// formatEntry renders one listing line: level dashes, a space, the name.
func formatEntry(e Entry) string {
	return strings.Repeat("-", e.Level) + " " + e.Name
}

// summaryLines are printed after the listing.
func summaryLines(s Summary, withTokens bool) []string {
	lines := []string{
		fmt.Sprintf("总文件数 = %d", s.Files),
		fmt.Sprintf("line =  %d", s.Lines),
	}
	if withTokens {
		lines = append(lines, fmt.Sprintf("tokens = %d", s.Tokens))
	}
	return lines
}

// renderText generates the full text report.
func renderText(r *Report, withTokens bool) string {
	var builder strings.Builder
	for _, e := range r.Entries {
		builder.WriteString(formatEntry(e))
		builder.WriteString("\n")
	}
	for _, l := range summaryLines(r.Summary, withTokens) {
		builder.WriteString(l)
		builder.WriteString("\n")
	}
	return builder.String()
}

// renderYAML marshals the whole report.
func renderYAML(r *Report) (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("error encoding report as yaml: %w", err)
	}
	return string(out), nil
}

// render produces the report in the requested format.
func render(r *Report, format string, withTokens bool) (string, error) {
	switch format {
	case "", formatText:
		return renderText(r, withTokens), nil
	case formatYAML:
		return renderYAML(r)
	default:
		return "", fmt.Errorf("unsupported output format: %s. Use 'text' or 'yaml'", format)
	}
}

// linePrinter writes each entry to w as soon as the scanner finds it.
func linePrinter(w io.Writer) func(Entry) {
	return func(e Entry) {
		fmt.Fprintln(w, formatEntry(e))
	}
}

// printSummary writes the summary lines after a streamed listing.
func printSummary(w io.Writer, s Summary, withTokens bool) {
	for _, l := range summaryLines(s, withTokens) {
		fmt.Fprintln(w, l)
	}
}

// Destination says where a finished report goes.
type Destination struct {
	File      string
	Clipboard bool
	PDF       string
}

// streams reports whether the listing can be printed while scanning.
func (d Destination) streams(format string) bool {
	return d.File == "" && !d.Clipboard && d.PDF == "" && (format == "" || format == formatText)
}

// deliver sends rendered output to a file or the clipboard, or to stdout
// when neither is set.
func deliver(d Destination, output string, stdout, stderr io.Writer) error {
	switch {
	case d.File != "":
		if err := os.WriteFile(d.File, []byte(output), 0644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", d.File, err)
		}
		fmt.Fprintf(stderr, "Output saved to %s\n", d.File)
	case d.Clipboard:
		if err := clipboard.WriteAll(output); err != nil {
			fmt.Fprintf(stderr, "Error writing to clipboard: %v\n", err)
			fmt.Fprint(stdout, output)
			return nil
		}
		fmt.Fprintln(stderr, "Output copied to clipboard.")
	default:
		fmt.Fprint(stdout, output)
	}
	return nil
}
