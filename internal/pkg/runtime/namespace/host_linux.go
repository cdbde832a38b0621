// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package namespace

import (
	"github.com/moby/sys/mount"
	"golang.org/x/sys/unix"
)

type host struct{}

// Host returns the System operating on the calling thread.
func Host() System {
	return host{}
}

func (host) Unshare() error {
	return unix.Unshare(unix.CLONE_NEWNS | unix.CLONE_FS)
}

func (host) MakeRSlave(path string) error {
	return mount.MakeRSlave(path)
}

func (host) Mount(source, target, fstype, options string) error {
	return mount.Mount(source, target, fstype, options)
}

func (host) Chdir(path string) error {
	return unix.Chdir(path)
}

func (host) Chroot(path string) error {
	return unix.Chroot(path)
}
