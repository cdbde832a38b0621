// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package fs

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sylabs/inception/pkg/sylog"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

type recorder struct {
	lines []string
}

func (r *recorder) logger() *sylog.Logger {
	return sylog.New(sylog.SinkFunc(func(_ sylog.MessageLevel, msg string) {
		r.lines = append(r.lines, msg)
	}), int(sylog.DebugLevel))
}

func (r *recorder) contains(s string) bool {
	for _, l := range r.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

func TestClassifyMode(t *testing.T) {
	tests := []struct {
		name     string
		mode     os.FileMode
		expected EntryType
		message  string
	}{
		{name: "directory", mode: os.ModeDir | 0o755, expected: Directory},
		{name: "regular", mode: 0o644, expected: RegularFile},
		{name: "symlink", mode: os.ModeSymlink, expected: Disallowed, message: "Symlink"},
		{name: "char device", mode: os.ModeDevice | os.ModeCharDevice, expected: Disallowed, message: "Character device"},
		{name: "block device", mode: os.ModeDevice, expected: Disallowed, message: "Block device"},
		{name: "fifo", mode: os.ModeNamedPipe, expected: Disallowed, message: "FIFO pipe"},
		{name: "socket", mode: os.ModeSocket, expected: Disallowed, message: "Socket"},
		{name: "irregular", mode: os.ModeIrregular, expected: Disallowed, message: "Unknown file type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			got := ClassifyMode("/some/path", tt.mode, r.logger())
			assert.Equal(t, got, tt.expected)
			if tt.message == "" {
				assert.Check(t, is.Len(r.lines, 0))
				return
			}
			assert.Check(t, r.contains(tt.message), "log: %v", r.lines)
			assert.Check(t, r.contains("/some/path"), "log: %v", r.lines)
		})
	}
}

func TestValidateMountPair(t *testing.T) {
	dir := fs.NewDir(t, "mountcheck",
		fs.WithDir("src"),
		fs.WithDir("dst"),
		fs.WithFile("file-a", "a"),
		fs.WithFile("file-b", "b"),
		fs.WithSymlink("link", "src"),
	)
	defer dir.Remove()

	fifo := dir.Join("fifo")
	assert.NilError(t, unix.Mkfifo(fifo, 0o600))

	sock := filepath.Join(dir.Path(), "sock")
	l, err := net.Listen("unix", sock)
	assert.NilError(t, err)
	defer l.Close()

	tests := []struct {
		name   string
		source string
		target string
		err    error
	}{
		{name: "dir to dir", source: dir.Join("src"), target: dir.Join("dst")},
		{name: "file to file", source: dir.Join("file-a"), target: dir.Join("file-b")},
		{name: "file to dir", source: dir.Join("file-a"), target: dir.Join("dst"), err: ErrTypeMismatch},
		{name: "dir to file", source: dir.Join("src"), target: dir.Join("file-b"), err: ErrTypeMismatch},
		{name: "char device source", source: "/dev/null", target: dir.Join("file-b"), err: ErrDisallowedType},
		{name: "symlink source", source: dir.Join("link"), target: dir.Join("dst"), err: ErrDisallowedType},
		{name: "symlink target", source: dir.Join("src"), target: dir.Join("link"), err: ErrDisallowedType},
		{name: "fifo target", source: dir.Join("file-a"), target: fifo, err: ErrDisallowedType},
		{name: "socket source", source: sock, target: dir.Join("file-b"), err: ErrDisallowedType},
		{name: "missing source", source: dir.Join("missing"), target: dir.Join("dst"), err: ErrStat},
		{name: "missing target", source: dir.Join("src"), target: dir.Join("missing"), err: ErrStat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			err := ValidateMountPair(tt.source, tt.target, r.logger())
			if tt.err == nil {
				assert.NilError(t, err)
				return
			}
			assert.Check(t, errors.Is(err, tt.err), "got %v", err)
			assert.Check(t, len(r.lines) > 0)
		})
	}
}

func TestValidateMountPairMessages(t *testing.T) {
	dir := fs.NewDir(t, "mountcheck", fs.WithDir("src"), fs.WithFile("file", ""))
	defer dir.Remove()

	r := &recorder{}
	err := ValidateMountPair(dir.Join("src"), dir.Join("file"), r.logger())
	assert.Check(t, errors.Is(err, ErrTypeMismatch))
	assert.Check(t, r.contains("Resolved mounts must be same type"), "log: %v", r.lines)

	r = &recorder{}
	err = ValidateMountPair(dir.Join("nope"), dir.Join("file"), r.logger())
	assert.Check(t, errors.Is(err, ErrStat))
	assert.Check(t, r.contains("Unable to find source path"), "log: %v", r.lines)
}

func TestResolveTarget(t *testing.T) {
	root := fs.NewDir(t, "imgroot",
		fs.WithDir("usr", fs.WithDir("lib")),
		fs.WithDir("home"),
		fs.WithSymlink("lib", "usr/lib"),
		fs.WithSymlink("escape", "/etc"),
	)
	defer root.Remove()

	tests := []struct {
		name     string
		target   string
		expected string
		err      error
	}{
		{name: "plain", target: "/home", expected: root.Join("home")},
		{name: "nested", target: "/usr/lib", expected: root.Join("usr", "lib")},
		{name: "relative", target: "home", expected: root.Join("home")},
		{name: "dot dot", target: "/../../home", expected: root.Join("home")},
		{name: "missing leaf", target: "/home/missing", expected: root.Join("home", "missing")},
		{name: "root", target: "/", expected: root.Path()},
		{name: "symlink", target: "/lib", err: ErrTargetEscape},
		{name: "absolute symlink", target: "/escape", err: ErrTargetEscape},
		{name: "through symlink", target: "/escape/passwd", err: ErrTargetEscape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTarget(root.Path(), tt.target)
			if tt.err != nil {
				assert.Check(t, errors.Is(err, tt.err), "got %v", err)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, got, tt.expected)
		})
	}
}

func TestHelpers(t *testing.T) {
	dir := fs.NewDir(t, "helpers", fs.WithFile("file", ""), fs.WithSymlink("link", "."))
	defer dir.Remove()

	assert.Check(t, IsDir(dir.Path()))
	assert.Check(t, IsDir(dir.Join("link")))
	assert.Check(t, !IsDir(dir.Join("file")))
	assert.Check(t, !IsDir(dir.Join("missing")))
}
