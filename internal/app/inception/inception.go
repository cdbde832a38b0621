// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package inception implements the entry points shared by the launcher,
// the session module and the scheduler plugin: load an image from the
// catalog, build its namespace and find the shell to run in it.
package inception

import (
	"github.com/pkg/errors"
	"github.com/sylabs/inception/internal/pkg/runtime/namespace"
	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
)

// LoadImage loads the image name from the catalog filename. An empty
// name selects the first catalog entry.
func LoadImage(filename, name string, log *sylog.Logger) (*image.Image, error) {
	log.Debugf("Loading image %q from %s", name, filename)
	return image.Load(filename, name, log)
}

// ParseConfig loads the image name from the catalog filename into out
// and returns 0 on success, or the negative status code of the failure.
// out is left untouched on failure.
func ParseConfig(filename, name string, out *image.Image, log *sylog.Logger) int {
	img, err := LoadImage(filename, name, log)
	if err != nil {
		return image.StatusCode(err)
	}
	*out = *img
	return 0
}

// SetupNamespace builds the namespace of img and drops privileges to id.
// It must be called from a locked OS thread, the same thread must run the
// user code afterward. On error the caller must terminate without running
// user code.
func SetupNamespace(img *image.Image, id *user.Identity, log *sylog.Logger) error {
	log.Verbosef("Setting up namespace of image %s for user %s", img.Name, id.Name)
	return namespace.NewBuilder(log).Build(img, id)
}

// ShellResolver returns the login shell of uid and its base name.
type ShellResolver func(uid uint32) (path, name string, err error)

// FindShell sets the shell of img to the login shell of uid. Once the
// root changed, the image user database is used.
func FindShell(img *image.Image, uid uint32, log *sylog.Logger) error {
	return findShell(user.ResolveShell, img, uid, log)
}

func findShell(resolve ShellResolver, img *image.Image, uid uint32, log *sylog.Logger) error {
	path, name, err := resolve(uid)
	if err != nil {
		log.Errorf("Unable to determine the shell of uid %d: %s", uid, err)
		return errors.Wrap(err, "while resolving user shell")
	}
	img.ShellPath = path
	img.ShellName = name
	log.Debugf("Using shell %s", path)
	return nil
}
