package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	gitignore "github.com/monochromegane/go-gitignore"
)

// Scanner walks a directory tree depth-first, lists visible subdirectories
// and matched files, and tallies matched files and their lines.
//
// Paths handed to the filesystem are relative to its root; the constructed
// paths used for exclusion matching and reporting start with the display
// root passed to Scan.
type Scanner struct {
	fs        billy.Filesystem
	opts      ScanOptions
	logger    *slog.Logger
	tokenizer Tokenizer
	onEntry   func(Entry)
}

// NewScanner returns a scanner reading from fsys.
func NewScanner(fsys billy.Filesystem, opts ScanOptions, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.OnError == "" {
		opts.OnError = FailFast
	}
	return &Scanner{fs: fsys, opts: opts, logger: logger}
}

// WithTokenizer enables token counting of matched files.
func (s *Scanner) WithTokenizer(tk Tokenizer) *Scanner {
	s.tokenizer = tk
	return s
}

// OnEntry registers fn to be called for every entry as soon as it is found,
// before the scan finishes.
func (s *Scanner) OnEntry(fn func(Entry)) *Scanner {
	s.onEntry = fn
	return s
}

// scanState is the per-scan accumulator threaded through the walk.
type scanState struct {
	excluded map[string]bool
	ignore   gitignore.IgnoreMatcher
	report   *Report
	errs     errorCollector
}

// Scan walks the tree starting at level 1. root is the display form of the
// filesystem root (for example "." or "src/lib").
//
// The returned report is never nil. Under FailFast it holds whatever was
// listed before the error.
func (s *Scanner) Scan(root string) (*Report, error) {
	root = normalizeRoot(root)
	st := &scanState{
		excluded: buildExcludeSet(root, s.opts.Excludes),
		report:   &Report{Root: root},
	}
	if s.opts.GitIgnore {
		st.ignore = s.loadGitIgnore(root)
	}

	s.logger.Debug("scan started", "root", root, "patterns", s.opts.Patterns, "policy", s.opts.OnError)
	if err := s.walk(st, 1, root, "."); err != nil {
		return st.report, err
	}
	s.logger.Debug("scan finished", "files", st.report.Summary.Files, "lines", st.report.Summary.Lines)
	return st.report, st.errs.ErrorOrNil()
}

// walk visits one directory. path is the constructed path, rel the same
// directory relative to the filesystem root.
func (s *Scanner) walk(st *scanState, level int, path, rel string) error {
	if st.excluded[path] {
		s.logger.Debug("excluded", "path", path)
		return nil
	}

	infos, err := s.fs.ReadDir(rel)
	if err != nil {
		return s.fail(st, &FilesystemError{Op: "list", Path: path, Err: err})
	}

	var dirs, files []fs.FileInfo
	for _, info := range infos {
		name := info.Name()
		childRel := s.fs.Join(rel, name)
		if info.Mode()&os.ModeSymlink != 0 {
			target, err := s.fs.Stat(childRel)
			if err != nil {
				if ferr := s.fail(st, &FilesystemError{Op: "stat", Path: joinPath(path, name), Err: err}); ferr != nil {
					return ferr
				}
				continue
			}
			info = renamedInfo{FileInfo: target, name: name}
		}

		if st.ignore != nil && st.ignore.Match(joinPath(path, name), info.IsDir()) {
			continue
		}

		switch {
		case info.IsDir():
			if !s.opts.Hidden && isHidden(name) {
				continue
			}
			dirs = append(dirs, info)
		case info.Mode().IsRegular() && matchesAnyPattern(name, s.opts.Patterns):
			files = append(files, info)
		}
	}

	for _, d := range dirs {
		s.emit(st, Entry{Level: level, Name: d.Name(), Path: joinPath(path, d.Name()), IsDir: true})
		if err := s.walk(st, level+1, joinPath(path, d.Name()), s.fs.Join(rel, d.Name())); err != nil {
			return err
		}
	}

	for _, f := range files {
		childPath := joinPath(path, f.Name())
		content, err := util.ReadFile(s.fs, s.fs.Join(rel, f.Name()))
		if err != nil {
			if ferr := s.fail(st, &FilesystemError{Op: "read", Path: childPath, Err: err}); ferr != nil {
				return ferr
			}
			continue
		}

		entry := Entry{Level: level, Name: f.Name(), Path: childPath, Lines: countLines(content)}
		if s.tokenizer != nil {
			entry.Tokens = s.tokenizer.CountTokens(string(content))
		}
		st.report.Summary.Lines += entry.Lines
		st.report.Summary.Tokens += entry.Tokens
		s.emit(st, entry)
		st.report.Summary.Files++
	}
	return nil
}

func (s *Scanner) emit(st *scanState, e Entry) {
	st.report.Entries = append(st.report.Entries, e)
	if s.onEntry != nil {
		s.onEntry(e)
	}
}

// fail applies the error policy. A nil return means the caller skips the
// entry and continues.
func (s *Scanner) fail(st *scanState, err *FilesystemError) error {
	if s.opts.OnError != SkipFailed {
		return err
	}
	s.logger.Warn("skipping unreadable path", "op", err.Op, "path", err.Path, "error", err.Err)
	st.report.Failed = append(st.report.Failed, err.Path)
	st.errs.add(err)
	return nil
}

// loadGitIgnore reads the .gitignore at the filesystem root, if any.
func (s *Scanner) loadGitIgnore(root string) gitignore.IgnoreMatcher {
	f, err := s.fs.Open(".gitignore")
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("could not open .gitignore", "error", err)
		}
		return nil
	}
	defer f.Close()
	s.logger.Debug("using .gitignore", "root", root)
	return gitignore.NewGitIgnoreFromReader(root, f)
}

// renamedInfo keeps the link name while reporting the target's metadata.
type renamedInfo struct {
	fs.FileInfo
	name string
}

func (r renamedInfo) Name() string { return r.name }

// matchesAnyPattern reports whether name contains any of the substrings.
func matchesAnyPattern(name string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// isHidden checks if a name starts with '.'.
func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

// normalizeRoot drops trailing slashes so children are built as root + "/" + name.
func normalizeRoot(root string) string {
	if root == "" {
		return "."
	}
	trimmed := strings.TrimRight(root, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

func joinPath(parent, name string) string {
	if strings.HasSuffix(parent, "/") {
		return parent + name
	}
	return parent + "/" + name
}

// buildExcludeSet rewrites a leading "./" to the scan root, so the default
// entries keep their meaning when the root is not ".".
func buildExcludeSet(root string, excludes []string) map[string]bool {
	set := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(e, "./"); ok && root != "." {
			e = joinPath(root, rest)
		}
		set[strings.TrimRight(e, "/")] = true
	}
	return set
}

// countLines counts lines the way a text-mode reader splits them: "\n",
// "\r\n" and a lone "\r" all end a line, and a trailing unterminated line
// still counts.
func countLines(data []byte) int {
	lines := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			lines++
		case '\r':
			lines++
			if i+1 < len(data) && data[i+1] == '\n' {
				i++
			}
		}
	}
	if n := len(data); n > 0 && data[n-1] != '\n' && data[n-1] != '\r' {
		lines++
	}
	return lines
}

// describeRoot is the one-line title of a report.
func describeRoot(r *Report) string {
	return fmt.Sprintf("%s (%d files, %d lines)", r.Root, r.Summary.Files, r.Summary.Lines)
}
