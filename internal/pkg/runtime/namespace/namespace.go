// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package namespace builds the mount namespace of an image. The sequence
// of operations is fixed: detach the mount namespace, stop mount
// propagation to the host, mount the image mounts, change root to the
// image root, drop privileges and finally enter the working directory.
package namespace

import (
	"fmt"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/pkg/errors"
	"github.com/sylabs/inception/internal/pkg/util/fs"
	"github.com/sylabs/inception/internal/pkg/util/fs/mount"
	"github.com/sylabs/inception/internal/pkg/util/fs/proc"
	"github.com/sylabs/inception/internal/pkg/util/priv"
	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
)

// System are the privileged filesystem operations used to build the
// namespace. They apply to the calling OS thread and must all be called
// from the same locked thread.
type System interface {
	// Unshare detaches the mount namespace and filesystem attributes.
	Unshare() error
	// MakeRSlave stops propagation of mount events under path to the
	// parent namespace.
	MakeRSlave(path string) error
	Mount(source, target, fstype, options string) error
	Chdir(path string) error
	Chroot(path string) error
}

var (
	// ErrUnshare is returned in strict isolation when the mount namespace
	// can't be detached.
	ErrUnshare = errors.New("unable to detach mount namespace")
	// ErrPropagation is returned in strict isolation when mount
	// propagation can't be disabled.
	ErrPropagation = errors.New("unable to disable mount propagation")
)

// Builder builds image namespaces.
type Builder struct {
	System      System
	Credentials priv.Credentials
	Logger      *sylog.Logger
}

// NewBuilder returns a builder acting on the calling process.
func NewBuilder(log *sylog.Logger) *Builder {
	return &Builder{
		System:      Host(),
		Credentials: priv.Process(),
		Logger:      log,
	}
}

// Build builds the namespace of img for the real identity id. id must be
// resolved before calling Build since the host user database isn't
// reachable anymore once the root changed. On success the process runs
// chrooted in img.Root with the credentials of id. On error the process
// is in an undefined state and must not run user code.
func (b *Builder) Build(img *image.Image, id *user.Identity) error {
	log := b.Logger

	if err := b.System.Unshare(); err != nil {
		log.Errorf("Unable to create new mount namespace: %s", err)
		if img.IsStrict() {
			return fmt.Errorf("%w: %s", ErrUnshare, err)
		}
		log.Warningf("Continuing in the parent mount namespace, host mounts are not isolated")
	} else if ns, err := proc.MountNamespace(); err == nil {
		log.Debugf("Entered mount namespace %s", ns)
	}

	system := &mount.System{
		Points: &mount.Points{},
		Mount:  b.mount,
	}
	if err := system.RunBeforeTag(mount.PropagationTag, b.setSlaveMount(img.IsStrict())); err != nil {
		return err
	}
	if err := system.RunAfterTag(mount.PropagationTag, b.reportPropagation("/")); err != nil {
		return err
	}

	for _, m := range img.Mounts {
		dest, err := fs.ResolveTarget(img.Root, m.Target)
		if err != nil {
			log.Errorf("Unable to resolve mount target %s: %s", m.Target, err)
			return err
		}
		if len(system.Points.GetByDest(dest)) > 0 {
			log.Verbosef("Mount of %s on %s shadows a previous mount", m.Source, dest)
		}
		if err := system.Points.Add(mount.ImageTag, m.Source, dest, m.Kind); err != nil {
			log.Errorf("Invalid mount %s -> %s: %s", m.Source, dest, err)
			return err
		}
	}

	if err := system.MountAll(); err != nil {
		return err
	}

	// chroot must come after chdir so relative paths resolve in the image
	if err := b.System.Chdir(img.Root); err != nil {
		log.Errorf("Unable to change directory to %s: %s", img.Root, err)
		return errors.Wrapf(err, "while changing directory to %s", img.Root)
	}
	if err := b.System.Chroot(img.Root); err != nil {
		log.Errorf("Unable to change root to %s: %s", img.Root, err)
		return errors.Wrapf(err, "while changing root to %s", img.Root)
	}

	if err := priv.Drop(b.Credentials, id, log); err != nil {
		return err
	}

	if img.Cwd != "" {
		if err := b.System.Chdir(img.Cwd); err != nil {
			log.Warningf("Unable to change directory to %s: %s", img.Cwd, err)
		}
	}
	return nil
}

func (b *Builder) setSlaveMount(strict bool) mount.HookFn {
	return func(*mount.System) error {
		b.Logger.Debugf("Set mount propagation flag to SLAVE")
		if err := b.System.MakeRSlave("/"); err != nil {
			b.Logger.Errorf("Unable to disable mount propagation: %s", err)
			if strict {
				return fmt.Errorf("%w: %s", ErrPropagation, err)
			}
			b.Logger.Warningf("Image mounts may propagate to the host")
		}
		return nil
	}
}

// reportPropagation logs the propagation type of point as seen from the
// calling thread.
func (b *Builder) reportPropagation(point string) mount.HookFn {
	return func(*mount.System) error {
		infos, err := mountinfo.GetMounts(mountinfo.SingleEntryFilter(point))
		if err != nil {
			b.Logger.Debugf("Unable to read mount information: %s", err)
			return nil
		}
		if len(infos) > 0 {
			b.Logger.Debugf("Mount point %s propagation is %s", point, propagation(infos[0]))
		}
		return nil
	}
}

// propagation returns the propagation type described by the optional
// fields of a mount.
func propagation(info *mountinfo.Info) string {
	shared, slave := false, false
	for _, f := range strings.Fields(info.Optional) {
		switch {
		case strings.HasPrefix(f, "shared:"):
			shared = true
		case strings.HasPrefix(f, "master:"):
			slave = true
		case f == "unbindable":
			return "unbindable"
		}
	}
	switch {
	case shared && slave:
		return "shared and slave"
	case shared:
		return "shared"
	case slave:
		return "slave"
	}
	return "private"
}

func (b *Builder) mount(point *mount.Point, _ *mount.System) error {
	if point.IsBind() {
		b.Logger.Verbosef("Binding %s to %s", point.Source, point.Destination)
	} else {
		b.Logger.Verbosef("Mounting %s filesystem to %s", point.Type, point.Destination)
	}
	if err := b.System.Mount(point.Source, point.Destination, point.Type, point.OptionString()); err != nil {
		b.Logger.Errorf("Unable to mount %s to %s: %s", point.Source, point.Destination, err)
		return err
	}
	return nil
}
