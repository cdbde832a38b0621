// Copyright (c) 2018, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mount

import (
	"fmt"
)

// HookFn describes function prototype for function
// to be called before/after mounting a tag list
type HookFn func(*System) error

// MountFn describes function prototype for function responsible
// of mount operation
type MountFn func(*Point, *System) error

// System defines a mount system allowing to register before/after
// hook functions for specific tag during mount phase
type System struct {
	Points         *Points
	Mount          MountFn
	beforeTagHooks map[AuthorizedTag][]HookFn
	afterTagHooks  map[AuthorizedTag][]HookFn
}

func (b *System) init() {
	if b.beforeTagHooks == nil {
		b.beforeTagHooks = make(map[AuthorizedTag][]HookFn)
	}
	if b.afterTagHooks == nil {
		b.afterTagHooks = make(map[AuthorizedTag][]HookFn)
	}
	if b.Points == nil {
		b.Points = &Points{}
	}
}

// RunBeforeTag registers a hook function executed before mounting points
// of tag list
func (b *System) RunBeforeTag(tag AuthorizedTag, fn HookFn) error {
	if _, ok := authorizedTags[tag]; !ok {
		return fmt.Errorf("tag %s is not an authorized tag", tag)
	}
	b.init()
	b.beforeTagHooks[tag] = append(b.beforeTagHooks[tag], fn)
	return nil
}

// RunAfterTag registers a hook function executed after mounting points
// of tag list
func (b *System) RunAfterTag(tag AuthorizedTag, fn HookFn) error {
	if _, ok := authorizedTags[tag]; !ok {
		return fmt.Errorf("tag %s is not an authorized tag", tag)
	}
	b.init()
	b.afterTagHooks[tag] = append(b.afterTagHooks[tag], fn)
	return nil
}

// MountAll iterates over mount point list and mounts every point
// by calling hook before/after hook functions. The first error stops
// the whole process, already mounted points are left in place.
func (b *System) MountAll() error {
	b.init()
	for _, tag := range GetTagList() {
		for _, fn := range b.beforeTagHooks[tag] {
			if err := fn(b); err != nil {
				return fmt.Errorf("hook function for tag %s returns error: %w", tag, err)
			}
		}
		for _, point := range b.Points.GetByTag(tag) {
			if b.Mount != nil {
				if err := b.Mount(&point, b); err != nil {
					return fmt.Errorf("mount %s->%s error: %w", point.Source, point.Destination, err)
				}
			}
		}
		for _, fn := range b.afterTagHooks[tag] {
			if err := fn(b); err != nil {
				return fmt.Errorf("hook function for tag %s returns error: %w", tag, err)
			}
		}
	}
	return nil
}
