package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fsys := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fsys, name, []byte(content), 0o644))
	}
	return fsys
}

func listing(r *Report) []string {
	var out []string
	for _, e := range r.Entries {
		out = append(out, formatEntry(e))
	}
	return out
}

func nLines(n int) string {
	return strings.Repeat("x\n", n)
}

func TestScanMixedTree(t *testing.T) {
	fsys := newTree(t, map[string]string{
		"a.cpp":              nLines(3),
		"sub/b.h":            nLines(5),
		"sub/.cache/c.cpp":   nLines(100),
		"readme.txt":         nLines(7),
		"docs/note.h.txt":    nLines(2),
		"docs/thing.hpp.bak": nLines(1),
	})

	report, err := NewScanner(fsys, DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"- docs",
		"-- note.h.txt",
		"-- thing.hpp.bak",
		"- sub",
		"-- b.h",
		"- a.cpp",
	}, listing(report))
	assert.Equal(t, Summary{Files: 4, Lines: 11}, report.Summary)
	assert.Empty(t, report.Failed)
}

func TestScanConcreteScenario(t *testing.T) {
	fsys := newTree(t, map[string]string{
		"a.cpp":            nLines(3),
		"sub/b.h":          nLines(5),
		"sub/.cache/c.cpp": nLines(100),
	})

	report, err := NewScanner(fsys, DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)

	assert.Equal(t, []string{"- sub", "-- b.h", "- a.cpp"}, listing(report))
	assert.Equal(t, 2, report.Summary.Files)
	assert.Equal(t, 8, report.Summary.Lines)
	for _, e := range report.Entries {
		assert.NotContains(t, e.Path, ".cache")
	}
}

func TestScanEntryPaths(t *testing.T) {
	fsys := newTree(t, map[string]string{"src/core/x.hpp": "a\nb\n"})

	report, err := NewScanner(fsys, DefaultScanOptions(), nil).Scan("proj/")
	require.NoError(t, err)

	require.Len(t, report.Entries, 3)
	assert.Equal(t, Entry{Level: 1, Name: "src", Path: "proj/src", IsDir: true}, report.Entries[0])
	assert.Equal(t, Entry{Level: 2, Name: "core", Path: "proj/src/core", IsDir: true}, report.Entries[1])
	assert.Equal(t, Entry{Level: 3, Name: "x.hpp", Path: "proj/src/core/x.hpp", Lines: 2}, report.Entries[2])
	assert.Equal(t, "proj", report.Root)
}

func TestScanCountsEachFileOnce(t *testing.T) {
	fsys := newTree(t, map[string]string{"both.h.hpp.cpp": nLines(4)})

	report, err := NewScanner(fsys, DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, Summary{Files: 1, Lines: 4}, report.Summary)
}

func TestScanExclusions(t *testing.T) {
	files := map[string]string{
		"venv/lib/a.cpp":              nLines(10),
		"venv2/b.h":                   nLines(10),
		"cmake-build-debug/gen.h":     nLines(10),
		"app/venv/c.cpp":              nLines(2),
		"app/cmake-build-debug/d.hpp": nLines(3),
		"main.cpp":                    nLines(1),
	}

	t.Run("default root", func(t *testing.T) {
		report, err := NewScanner(newTree(t, files), DefaultScanOptions(), nil).Scan(".")
		require.NoError(t, err)

		assert.Equal(t, []string{
			"- app",
			"-- cmake-build-debug",
			"--- d.hpp",
			"-- venv",
			"--- c.cpp",
			"- cmake-build-debug",
			"- venv",
			"- venv2",
			"- main.cpp",
		}, listing(report))
		assert.Equal(t, Summary{Files: 3, Lines: 6}, report.Summary)
	})

	t.Run("other root", func(t *testing.T) {
		report, err := NewScanner(newTree(t, files), DefaultScanOptions(), nil).Scan("work/proj")
		require.NoError(t, err)
		assert.Equal(t, Summary{Files: 3, Lines: 6}, report.Summary)
	})

	t.Run("literal path", func(t *testing.T) {
		opts := DefaultScanOptions()
		opts.Excludes = []string{"./app/venv"}
		report, err := NewScanner(newTree(t, files), opts, nil).Scan(".")
		require.NoError(t, err)
		// venv, venv2 and cmake-build-debug at the root are no longer excluded.
		assert.Equal(t, Summary{Files: 5, Lines: 34}, report.Summary)
	})
}

func TestScanHiddenDirectories(t *testing.T) {
	files := map[string]string{
		".git/hooks/x.h": nLines(4),
		".vscode/y.cpp":  nLines(4),
		"z.cpp":          nLines(1),
	}

	report, err := NewScanner(newTree(t, files), DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"- z.cpp"}, listing(report))

	opts := DefaultScanOptions()
	opts.Hidden = true
	report, err = NewScanner(newTree(t, files), opts, nil).Scan(".")
	require.NoError(t, err)
	// ./.vscode is still in the exclusion set: its header is printed, its contents are not.
	assert.Equal(t, []string{"- .git", "-- hooks", "--- x.h", "- .vscode", "- z.cpp"}, listing(report))
	assert.Equal(t, Summary{Files: 2, Lines: 5}, report.Summary)
}

func TestScanHiddenFilesAreMatched(t *testing.T) {
	report, err := NewScanner(newTree(t, map[string]string{".config.h": "x"}), DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.Files)
}

func TestScanIsRepeatable(t *testing.T) {
	fsys := newTree(t, map[string]string{
		"a/b/c.cpp": nLines(3),
		"a/d.h":     nLines(2),
		"e.hpp":     "",
	})
	scanner := NewScanner(fsys, DefaultScanOptions(), nil)

	first, err := scanner.Scan(".")
	require.NoError(t, err)
	second, err := scanner.Scan(".")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Summary{Files: 3, Lines: 5}, second.Summary)
}

func TestScanCustomPatterns(t *testing.T) {
	fsys := newTree(t, map[string]string{"main.go": nLines(2), "x.cpp": nLines(9)})
	opts := DefaultScanOptions()
	opts.Patterns = []string{".go"}

	report, err := NewScanner(fsys, opts, nil).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"- main.go"}, listing(report))
}

func TestScanGitIgnore(t *testing.T) {
	files := map[string]string{
		".gitignore":       "*.h\ngenerated\n",
		"keep.cpp":         nLines(1),
		"skip.h":           nLines(1),
		"generated/g.cpp":  nLines(1),
		"lib/inner/k.hpp":  nLines(1),
		"lib/inner/skip.h": nLines(1),
	}

	report, err := NewScanner(newTree(t, files), DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Summary.Files)

	opts := DefaultScanOptions()
	opts.GitIgnore = true
	report, err = NewScanner(newTree(t, files), opts, nil).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"- lib", "-- inner", "--- k.hpp", "- keep.cpp"}, listing(report))
}

type wordTokenizer struct{}

func (wordTokenizer) CountTokens(text string) int { return len(strings.Fields(text)) }

func TestScanTokens(t *testing.T) {
	fsys := newTree(t, map[string]string{
		"a.cpp":   "int main() { return 0; }\n",
		"sub/b.h": "#pragma once\n",
	})

	report, err := NewScanner(fsys, DefaultScanOptions(), nil).WithTokenizer(wordTokenizer{}).Scan(".")
	require.NoError(t, err)
	assert.Equal(t, Summary{Files: 2, Lines: 2, Tokens: 8}, report.Summary)
	assert.Equal(t, 2, report.Entries[1].Tokens)
}

func TestScanOnEntryStreamsInOrder(t *testing.T) {
	fsys := newTree(t, map[string]string{"a.cpp": "x", "d/b.h": "y"})

	var seen []string
	report, err := NewScanner(fsys, DefaultScanOptions(), nil).
		OnEntry(func(e Entry) { seen = append(seen, formatEntry(e)) }).
		Scan(".")
	require.NoError(t, err)
	assert.Equal(t, listing(report), seen)
}

// faultyFS fails listing or opening selected paths.
type faultyFS struct {
	billy.Filesystem
	failList map[string]bool
	failOpen map[string]bool
}

func (f faultyFS) ReadDir(path string) ([]os.FileInfo, error) {
	if f.failList[path] {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrPermission}
	}
	return f.Filesystem.ReadDir(path)
}

func (f faultyFS) Open(name string) (billy.File, error) {
	if f.failOpen[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return f.Filesystem.Open(name)
}

func faultyTree(t *testing.T) billy.Filesystem {
	return faultyFS{
		Filesystem: newTree(t, map[string]string{
			"a/ok.cpp":     nLines(2),
			"locked/x.cpp": nLines(50),
			"z/bad.h":      nLines(50),
			"z/good.h":     nLines(3),
		}),
		failList: map[string]bool{"locked": true},
		failOpen: map[string]bool{"z/bad.h": true},
	}
}

func TestScanFailFast(t *testing.T) {
	report, err := NewScanner(faultyTree(t), DefaultScanOptions(), nil).Scan(".")
	require.Error(t, err)

	var fsErr *FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "list", fsErr.Op)
	assert.Equal(t, "./locked", fsErr.Path)
	assert.ErrorIs(t, err, fs.ErrPermission)

	// Everything listed before the failure is kept.
	assert.Equal(t, []string{"- a", "-- ok.cpp", "- locked"}, listing(report))
	assert.Equal(t, Summary{Files: 1, Lines: 2}, report.Summary)
}

func TestScanSkipFailed(t *testing.T) {
	opts := DefaultScanOptions()
	opts.OnError = SkipFailed

	report, err := NewScanner(faultyTree(t), opts, nil).Scan(".")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)

	assert.Equal(t, []string{"- a", "-- ok.cpp", "- locked", "- z", "-- good.h"}, listing(report))
	assert.Equal(t, Summary{Files: 2, Lines: 5}, report.Summary)
	assert.Equal(t, []string{"./locked", "./z/bad.h"}, report.Failed)
}

func TestScanMissingRoot(t *testing.T) {
	fsys := osfs.New(filepath.Join(t.TempDir(), "missing"))

	_, err := NewScanner(fsys, DefaultScanOptions(), nil).Scan(".")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestScanFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real", "r.cpp"), []byte(nLines(2)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.h"), []byte(nLines(1)), 0o644))
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "top.h"), filepath.Join(dir, "alias.h")))

	report, err := NewScanner(osfs.New(dir), DefaultScanOptions(), nil).Scan(".")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"- linked",
		"-- r.cpp",
		"- real",
		"-- r.cpp",
		"- alias.h",
		"- top.h",
	}, listing(report))
	assert.Equal(t, Summary{Files: 4, Lines: 6}, report.Summary)
}

func TestScanBrokenSymlink(t *testing.T) {
	dir := t.TempDir()
	if err := os.Symlink(filepath.Join(dir, "gone.h"), filepath.Join(dir, "dangling.h")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := NewScanner(osfs.New(dir), DefaultScanOptions(), nil).Scan(".")
	var fsErr *FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "stat", fsErr.Op)
	assert.Equal(t, "./dangling.h", fsErr.Path)
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"no newline", "a", 1},
		{"one line", "a\n", 1},
		{"unterminated last", "a\nb", 2},
		{"blank lines", "\n\n", 2},
		{"crlf", "a\r\nb\r\n", 2},
		{"lone cr", "a\rb", 2},
		{"trailing cr", "a\r", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countLines([]byte(tt.in)))
		})
	}
}

func TestMatchesAnyPattern(t *testing.T) {
	patterns := defaultPatterns
	assert.True(t, matchesAnyPattern("a.cpp", patterns))
	assert.True(t, matchesAnyPattern("a.hpp", patterns))
	assert.True(t, matchesAnyPattern("a.h", patterns))
	assert.True(t, matchesAnyPattern("note.h.txt", patterns))
	assert.True(t, matchesAnyPattern("x.html", patterns))
	assert.False(t, matchesAnyPattern("readme.txt", patterns))
	assert.False(t, matchesAnyPattern("Makefile", patterns))
	assert.False(t, matchesAnyPattern("a.cpp", []string{""}))
}

func TestBuildExcludeSet(t *testing.T) {
	set := buildExcludeSet(".", defaultExcludes)
	assert.Equal(t, map[string]bool{
		"./venv":              true,
		"./venv2":             true,
		"./.vs":               true,
		"./.vscode":           true,
		"./cmake-build-debug": true,
	}, set)

	set = buildExcludeSet("/srv/code", []string{"./venv", "other/abs/", " "})
	assert.Equal(t, map[string]bool{"/srv/code/venv": true, "other/abs": true}, set)
}

func TestNormalizeRoot(t *testing.T) {
	assert.Equal(t, ".", normalizeRoot(""))
	assert.Equal(t, ".", normalizeRoot("."))
	assert.Equal(t, "src", normalizeRoot("src//"))
	assert.Equal(t, "/", normalizeRoot("/"))
	assert.Equal(t, "/x", joinPath("/", "x"))
	assert.Equal(t, "./x", joinPath(".", "x"))
}
