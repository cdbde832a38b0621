// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package image describes inception images and loads them from a JSON
// image catalog.
//
// A catalog looks like:
//
//	{
//	  "isolation": "permissive",
//	  "images": [
//	    {
//	      "name": "centos7",
//	      "imgroot": "/opt/images/centos7",
//	      "cwd": "/tmp",
//	      "mounts": [
//	        {"from": "/etc/resolv.conf", "to": "/etc/resolv.conf"},
//	        {"from": "none", "to": "/proc", "type": "proc"}
//	      ]
//	    }
//	  ]
//	}
package image

import (
	"strings"
)

// Isolation controls what happens when the mount namespace can't be
// fully isolated from the host.
type Isolation string

const (
	// Permissive logs namespace detach and propagation failures and
	// continues with a weaker isolation.
	Permissive Isolation = "permissive"
	// Strict aborts on namespace detach and propagation failures.
	Strict Isolation = "strict"
)

// BindKind is the kind of a mount without explicit type.
const BindKind = "bind"

// Mount is a mount requested by an image.
type Mount struct {
	// Source is the host path, or "none" for pseudo filesystems.
	Source string
	// Target is the mount destination, relative to the image root.
	Target string
	// Kind is the filesystem type, BindKind by default.
	Kind string
	// ExplicitKind reports whether Kind was set by the catalog.
	ExplicitKind bool
}

// IsPseudo returns whether the mount is a pseudo filesystem not backed
// by a host path.
func (m Mount) IsPseudo() bool {
	return m.ExplicitKind && m.Kind != BindKind && strings.EqualFold(m.Source, "none")
}

// Image is the validated description of one catalog entry. It is owned
// by the caller and consumed once by the namespace builder.
type Image struct {
	Name string
	// Root is the absolute path of the image root filesystem.
	Root   string
	Mounts []Mount
	// Cwd is the working directory inside the image, callers may
	// override the catalog default.
	Cwd string
	// Command runs instead of an interactive shell when set.
	Command string

	ShellPath   string
	ShellName   string
	Environment []string

	Isolation Isolation
}

// IsStrict returns whether namespace isolation failures are fatal.
func (img *Image) IsStrict() bool {
	return img.Isolation == Strict
}
