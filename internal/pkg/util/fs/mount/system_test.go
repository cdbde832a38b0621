// Copyright (c) 2018, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mount

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestSystem(t *testing.T) {
	points := &Points{}

	assert.NilError(t, points.AddBind(ImageTag, "/etc/hosts", "/tmp/root/etc/hosts"))

	system := &System{
		Points: points,
	}

	before := false
	after := false
	mnt := false

	mountFn := func(point *Point, system *System) error {
		mnt = true
		return nil
	}
	beforeHook := func(system *System) error {
		before = true
		return nil
	}
	afterHook := func(system *System) error {
		after = true
		if system.Mount == nil {
			system.Mount = mountFn
		}
		return nil
	}

	assert.Check(t, system.RunBeforeTag("fakeTag", beforeHook) != nil, "RunBeforeTag should have failed with unauthorized tag")
	assert.Check(t, system.RunAfterTag("fakeTag", afterHook) != nil, "RunAfterTag should have failed with unauthorized tag")
	assert.NilError(t, system.RunBeforeTag(ImageTag, beforeHook))
	assert.NilError(t, system.RunAfterTag(ImageTag, afterHook))

	assert.NilError(t, system.MountAll())
	assert.Check(t, before, "beforeHook wasn't executed")
	assert.Check(t, after, "afterHook wasn't executed")
	assert.Check(t, !mnt, "mountFn shouldn't be set yet")

	assert.NilError(t, system.MountAll())
	assert.Check(t, mnt, "mountFn wasn't executed")
}

func TestSystemOrder(t *testing.T) {
	points := &Points{}
	assert.NilError(t, points.AddBind(ImageTag, "/etc/resolv.conf", "/root/etc/resolv.conf"))
	assert.NilError(t, points.AddFS(ImageTag, "none", "/root/proc", "proc"))
	assert.NilError(t, points.AddBind(ImageTag, "/home", "/root/home"))

	var calls []string
	system := &System{
		Points: points,
		Mount: func(p *Point, _ *System) error {
			calls = append(calls, "mount "+p.Destination)
			return nil
		},
	}
	assert.NilError(t, system.RunBeforeTag(PropagationTag, func(*System) error {
		calls = append(calls, "propagation")
		return nil
	}))
	assert.NilError(t, system.RunAfterTag(ImageTag, func(*System) error {
		calls = append(calls, "after image")
		return nil
	}))

	assert.NilError(t, system.MountAll())
	assert.DeepEqual(t, calls, []string{
		"propagation",
		"mount /root/etc/resolv.conf",
		"mount /root/proc",
		"mount /root/home",
		"after image",
	})
}

func TestSystemMountError(t *testing.T) {
	points := &Points{}
	assert.NilError(t, points.AddBind(ImageTag, "/a", "/root/a"))
	assert.NilError(t, points.AddBind(ImageTag, "/b", "/root/b"))
	assert.NilError(t, points.AddBind(ImageTag, "/c", "/root/c"))

	errMount := errors.New("permission denied")
	var mounted []string
	system := &System{
		Points: points,
		Mount: func(p *Point, _ *System) error {
			if p.Source == "/b" {
				return errMount
			}
			mounted = append(mounted, p.Source)
			return nil
		},
	}

	err := system.MountAll()
	assert.Check(t, errors.Is(err, errMount))
	assert.Check(t, is.ErrorContains(err, "/b->/root/b"))
	assert.DeepEqual(t, mounted, []string{"/a"})
}

func TestPoints(t *testing.T) {
	points := &Points{}

	assert.Check(t, points.AddBind(ImageTag, "", "/root/a") != nil)
	assert.Check(t, points.AddBind(ImageTag, "relative", "/root/a") != nil)
	assert.Check(t, points.AddBind(ImageTag, "/a", "") != nil)
	assert.Check(t, points.AddBind(ImageTag, "/a", "root/a") != nil)
	assert.Check(t, points.AddBind("unknown", "/a", "/root/a") != nil)

	err := points.AddFS(ImageTag, "none", "/root/dev", "ext4")
	assert.Check(t, errors.Is(err, ErrNotAuthorized))

	assert.NilError(t, points.Add(ImageTag, "/a", "/root/a/", ""))
	assert.NilError(t, points.Add(ImageTag, "/b", "/root/b", BindKind))
	assert.NilError(t, points.Add(ImageTag, "", "/root/tmp", "tmpfs"))

	all := points.GetByTag(ImageTag)
	assert.Assert(t, is.Len(all, 3))
	assert.Check(t, all[0].IsBind())
	assert.Check(t, is.Equal(all[0].Destination, "/root/a"))
	assert.Check(t, is.Equal(all[0].Type, "none"))
	assert.Check(t, is.Equal(all[0].OptionString(), "bind"))
	assert.Check(t, !all[2].IsBind())
	assert.Check(t, is.Equal(all[2].Source, "none"))
	assert.Check(t, is.Equal(all[2].Type, "tmpfs"))

	assert.Check(t, is.Len(points.GetByDest("/root/b"), 1))
	assert.NilError(t, points.Add(ImageTag, "/c", "/root/b", BindKind))
	assert.Check(t, is.Len(points.GetByDest("/root/b"), 2))
	assert.Check(t, is.Len(points.GetByDest("/root/c"), 0))

	// a single point tag
	assert.NilError(t, points.AddBind(PropagationTag, "/x", "/root/x"))
	assert.Check(t, points.AddBind(PropagationTag, "/y", "/root/y") != nil)

	assert.DeepEqual(t, GetTagList(), []AuthorizedTag{PropagationTag, ImageTag})
}
