// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package fs

import (
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
	"github.com/sylabs/inception/pkg/sylog"
)

// EntryType classifies a filesystem entry used as mount source or target.
type EntryType int

const (
	// Disallowed entries can never take part in a bind mount.
	Disallowed EntryType = iota
	// Directory is a directory.
	Directory
	// RegularFile is a regular file.
	RegularFile
)

func (e EntryType) String() string {
	switch e {
	case Directory:
		return "directory"
	case RegularFile:
		return "regular file"
	}
	return "disallowed"
}

var (
	// ErrStat is returned when a mount path can't be inspected.
	ErrStat = errors.New("unable to stat mount path")
	// ErrDisallowedType is returned for devices, sockets, FIFOs, symlinks
	// and unknown entry types.
	ErrDisallowedType = errors.New("mount path type is not allowed")
	// ErrTypeMismatch is returned when source and target are not both
	// directories or both regular files.
	ErrTypeMismatch = errors.New("resolved mounts must be same type")
	// ErrTargetEscape is returned when a mount target resolves through a
	// symbolic link inside the image root.
	ErrTargetEscape = errors.New("mount target resolves through a symbolic link")
)

// ClassifyMode returns the entry type for mode. Disallowed types are
// logged with path.
func ClassifyMode(path string, mode os.FileMode, log *sylog.Logger) EntryType {
	switch {
	case mode.IsDir():
		return Directory
	case mode.IsRegular():
		return RegularFile
	case mode&os.ModeSymlink != 0:
		log.Errorf("Symlink %s is not allowed", path)
	case mode&os.ModeCharDevice != 0:
		log.Errorf("Character device %s is not allowed", path)
	case mode&os.ModeDevice != 0:
		log.Errorf("Block device %s is not allowed", path)
	case mode&os.ModeNamedPipe != 0:
		log.Errorf("FIFO pipe %s is not allowed", path)
	case mode&os.ModeSocket != 0:
		log.Errorf("Socket %s is not allowed", path)
	default:
		log.Errorf("Unknown file type %s is not allowed", path)
	}
	return Disallowed
}

// Classify inspects path without following a final symlink.
func Classify(path string, log *sylog.Logger) (EntryType, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Disallowed, errors.Wrapf(ErrStat, "%s: %s", path, err)
	}
	return ClassifyMode(path, fi.Mode(), log), nil
}

// ValidateMountPair checks that source can be bind mounted on target: both
// must exist, neither may be a disallowed entry type and both must be
// directories or both regular files. It returns nil for a valid pair.
func ValidateMountPair(source, target string, log *sylog.Logger) error {
	src, err := Classify(source, log)
	if err != nil {
		log.Errorf("Unable to find source path: %s", source)
		return err
	}
	dst, err := Classify(target, log)
	if err != nil {
		log.Errorf("Unable to find resolved destination path: %s", target)
		return err
	}

	if src == Disallowed {
		return errors.Wrapf(ErrDisallowedType, "%s", source)
	}
	if dst == Disallowed {
		return errors.Wrapf(ErrDisallowedType, "%s", target)
	}

	if src != dst {
		log.Errorf("Resolved mounts must be same type: %s -> %s", source, target)
		return errors.Wrapf(ErrTypeMismatch, "%s (%s) -> %s (%s)", source, src, target, dst)
	}
	return nil
}

// ResolveTarget returns the host path of target inside root. The target is
// cleaned so it can't climb out of root, and every component is checked to
// not be a symbolic link by comparing with a root scoped secure join.
func ResolveTarget(root, target string) (string, error) {
	root = filepath.Clean(root)
	lexical := filepath.Join(root, filepath.Clean("/"+target))

	scoped, err := securejoin.SecureJoin(root, target)
	if err != nil {
		return "", errors.Wrapf(err, "while resolving %s in %s", target, root)
	}
	if scoped != lexical {
		return "", errors.Wrapf(ErrTargetEscape, "%s resolves to %s", lexical, scoped)
	}
	return lexical, nil
}
