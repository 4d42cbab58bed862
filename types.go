package main

// Entry is one line of the listing: a visible subdirectory or a matched file.
type Entry struct {
	Level  int    `yaml:"level"`
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	IsDir  bool   `yaml:"dir,omitempty"`
	Lines  int    `yaml:"lines,omitempty"`  // Files only
	Tokens int    `yaml:"tokens,omitempty"` // Populated if token counting is enabled
}

// Summary holds the counters accumulated over one scan.
type Summary struct {
	Files  int `yaml:"files"`
	Lines  int `yaml:"lines"`
	Tokens int `yaml:"tokens,omitempty"`
}

// Report is everything a scan produced, in print order.
type Report struct {
	Root    string   `yaml:"root"`
	Entries []Entry  `yaml:"entries"`
	Summary Summary  `yaml:"summary"`
	Failed  []string `yaml:"failed,omitempty"`
}

// ScanOptions controls what the scanner visits and counts.
type ScanOptions struct {
	Patterns  []string    // Substrings a file name must contain
	Excludes  []string    // Literal paths skipped entirely; "./" is rewritten to the root
	Hidden    bool        // Descend into directories starting with '.'
	GitIgnore bool        // Honour the root .gitignore
	OnError   ErrorPolicy // What to do when a directory or file cannot be read
}

var (
	defaultPatterns = []string{".cpp", ".hpp", ".h"}
	defaultExcludes = []string{
		"./venv",
		"./venv2",
		"./.vs",
		"./.vscode",
		"./cmake-build-debug",
	}
)

// DefaultScanOptions returns the options of a plain run with no flags.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Patterns: append([]string(nil), defaultPatterns...),
		Excludes: append([]string(nil), defaultExcludes...),
		OnError:  FailFast,
	}
}
