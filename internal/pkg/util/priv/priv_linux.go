// Copyright (c) 2018, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package priv

import (
	"os"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/sylog"
)

// Credentials are the process credential operations needed to drop
// privileges.
type Credentials interface {
	Geteuid() int
	Setgid(gid int) error
	Setgroups(gids []int) error
	Setuid(uid int) error
}

// process changes the credentials of every thread of the process.
type process struct{}

func (process) Geteuid() int               { return os.Geteuid() }
func (process) Setgid(gid int) error       { return syscall.Setgid(gid) }
func (process) Setgroups(gids []int) error { return syscall.Setgroups(gids) }
func (process) Setuid(uid int) error       { return syscall.Setuid(uid) }

// Process returns the credentials of the running process.
func Process() Credentials {
	return process{}
}

// Drop permanently lowers the process credentials to the real identity
// id: group id, then supplementary groups, then user id. It does nothing
// when the real user is root or when the effective uid is already the
// real one. Any error leaves the process in an undefined credential
// state, callers must not run user code after it.
func Drop(creds Credentials, id *user.Identity, log *sylog.Logger) error {
	if id.UID == 0 {
		log.Debugf("Real user is root, keeping privileges")
		return nil
	}
	if creds.Geteuid() == int(id.UID) {
		log.Debugf("Effective uid is already %d, nothing to drop", id.UID)
		return nil
	}

	log.Debugf("Dropping privileges to uid=%d gid=%d", id.UID, id.GID)

	if err := creds.Setgid(int(id.GID)); err != nil {
		log.Errorf("Unable to set group id %d: %s", id.GID, err)
		return errors.Wrapf(err, "while setting gid %d", id.GID)
	}

	groups := make([]int, 0, len(id.Groups)+1)
	groups = append(groups, int(id.GID))
	for _, g := range id.Groups {
		if g != id.GID {
			groups = append(groups, int(g))
		}
	}
	if err := creds.Setgroups(groups); err != nil {
		log.Errorf("Unable to initialize groups of %s: %s", id.Name, err)
		return errors.Wrapf(err, "while setting groups of %s", id.Name)
	}

	if err := creds.Setuid(int(id.UID)); err != nil {
		log.Errorf("Unable to set user id %d: %s", id.UID, err)
		return errors.Wrapf(err, "while setting uid %d", id.UID)
	}
	return nil
}
