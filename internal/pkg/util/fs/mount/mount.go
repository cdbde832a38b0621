// Copyright (c) 2018-2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package mount

import (
	"fmt"
	"path/filepath"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

type mountError string

func (e mountError) Error() string { return string(e) }

const (
	// ErrNotAuthorized indicates a filesystem type not allowed inside images
	ErrNotAuthorized = mountError("filesystem type is not authorized")
)

// BindKind is the mount kind used when an image mount has no explicit type.
const BindKind = "bind"

// AuthorizedTag defines the tag type
type AuthorizedTag string

const (
	// PropagationTag is processed first, its hooks fix up mount propagation
	// of the new namespace. No mount point is attached to it.
	PropagationTag AuthorizedTag = "propagation"
	// ImageTag defines tag for mount points requested by the image catalog,
	// mounted in insertion order
	ImageTag AuthorizedTag = "image"
)

var authorizedTags = map[AuthorizedTag]struct {
	multiPoint bool
	order      int
}{
	PropagationTag: {false, 0},
	ImageTag:       {true, 1},
}

// pseudo filesystems an image may request with the "none" source
var authorizedFS = map[string]struct{}{
	"proc":   {},
	"sysfs":  {},
	"tmpfs":  {},
	"ramfs":  {},
	"devpts": {},
	"mqueue": {},
}

// IsAuthorizedFS returns whether fstype can be mounted as a pseudo
// filesystem inside an image.
func IsAuthorizedFS(fstype string) bool {
	_, ok := authorizedFS[fstype]
	return ok
}

// Point describes a mount point. Destination is the absolute host path
// of the mount target.
type Point struct {
	specs.Mount
}

// IsBind returns whether the point is a bind mount.
func (p Point) IsBind() bool {
	for _, o := range p.Options {
		if o == "bind" || o == "rbind" {
			return true
		}
	}
	return false
}

// OptionString returns the point options as a mount option string.
func (p Point) OptionString() string {
	return strings.Join(p.Options, ",")
}

// Points defines and stores a set of mount points by tag. Points of a tag
// are kept in insertion order, a later point on the same destination
// shadows the earlier one once mounted.
type Points struct {
	points map[AuthorizedTag][]Point
}

// GetTagList returns authorized tags in right order
func GetTagList() []AuthorizedTag {
	tagList := make([]AuthorizedTag, len(authorizedTags))
	for k, tag := range authorizedTags {
		tagList[tag.order] = k
	}
	return tagList
}

func (p *Points) init() {
	if p.points == nil {
		p.points = make(map[AuthorizedTag][]Point)
	}
}

func (p *Points) add(tag AuthorizedTag, source, dest, fstype string, options []string) error {
	p.init()

	if dest == "" {
		return fmt.Errorf("mount point must contain a destination")
	}
	if !filepath.IsAbs(dest) {
		return fmt.Errorf("destination must be an absolute path")
	}
	if _, ok := authorizedTags[tag]; !ok {
		return fmt.Errorf("tag %s is not a recognized tag", tag)
	}
	if len(p.points[tag]) == 1 && !authorizedTags[tag].multiPoint {
		return fmt.Errorf("tag %s allow only one mount point", tag)
	}

	p.points[tag] = append(p.points[tag], Point{
		Mount: specs.Mount{
			Source:      source,
			Destination: filepath.Clean(dest),
			Type:        fstype,
			Options:     options,
		},
	})
	return nil
}

// AddBind adds a bind mount point
func (p *Points) AddBind(tag AuthorizedTag, source, dest string) error {
	if source == "" {
		return fmt.Errorf("a bind mount point must contain a source")
	}
	if !filepath.IsAbs(source) {
		return fmt.Errorf("source must be an absolute path")
	}
	return p.add(tag, source, dest, "none", []string{"bind"})
}

// AddFS adds a pseudo filesystem mount point
func (p *Points) AddFS(tag AuthorizedTag, source, dest, fstype string) error {
	if !IsAuthorizedFS(fstype) {
		return fmt.Errorf("mount %s: %w", fstype, ErrNotAuthorized)
	}
	if source == "" {
		source = "none"
	}
	return p.add(tag, source, dest, fstype, nil)
}

// Add adds a mount point of the given kind, an empty kind or BindKind
// being a bind mount.
func (p *Points) Add(tag AuthorizedTag, source, dest, kind string) error {
	if kind == "" || kind == BindKind {
		return p.AddBind(tag, source, dest)
	}
	return p.AddFS(tag, source, dest, kind)
}

// GetByDest returns registered mount points with the matched destination
func (p *Points) GetByDest(dest string) []Point {
	p.init()
	mounts := []Point{}
	for _, tag := range GetTagList() {
		for _, point := range p.points[tag] {
			if point.Destination == dest {
				mounts = append(mounts, point)
			}
		}
	}
	return mounts
}

// GetByTag returns mount points attached to a tag
func (p *Points) GetByTag(tag AuthorizedTag) []Point {
	p.init()
	return p.points[tag]
}
