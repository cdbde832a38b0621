// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package user

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrUnknownUser is returned when the user database has no entry for uid.
var ErrUnknownUser = errors.New("no user database entry")

// Identity is the real identity of the invoking user. It is captured
// while the host user database is still reachable, before any namespace
// operation, and is used as is afterward.
type Identity struct {
	UID    uint32
	GID    uint32
	Name   string
	Home   string
	Shell  string
	Groups []uint32
}

// LookupIdentity resolves the identity of uid, with gid as primary group.
func LookupIdentity(uid, gid uint32) (*Identity, error) {
	pw, err := GetPwUID(uid)
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownUser, "uid %d: %s", uid, err)
	}
	groups, err := GetGroups(pw.Name, gid)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UID:    uid,
		GID:    gid,
		Name:   pw.Name,
		Home:   pw.Dir,
		Shell:  pw.Shell,
		Groups: groups,
	}, nil
}

// CurrentIdentity resolves the real identity of the calling process.
func CurrentIdentity() (*Identity, error) {
	return LookupIdentity(uint32(os.Getuid()), uint32(os.Getgid()))
}

// ResolveShell returns the login shell of uid and its base name.
func ResolveShell(uid uint32) (path string, name string, err error) {
	pw, err := GetPwUID(uid)
	if err != nil {
		return "", "", errors.Wrapf(ErrUnknownUser, "uid %d: %s", uid, err)
	}
	return pw.Shell, filepath.Base(pw.Shell), nil
}
