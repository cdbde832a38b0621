// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package inception

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sylabs/inception/internal/pkg/buildcfg"
	"github.com/sylabs/inception/internal/pkg/runtime/namespace"
	"github.com/sylabs/inception/internal/pkg/util/env"
	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
	"golang.org/x/sys/unix"
)

// Options are the launcher command line options.
type Options struct {
	// Image is the catalog entry name, the first entry when empty.
	Image string
	// Cwd overrides the working directory of the image.
	Cwd string
	// ExportEnv forwards the launcher environment instead of a
	// sanitized one.
	ExportEnv bool
	// Args are joined with spaces into the command run by the shell.
	Args []string
}

// NamespaceBuilder builds the namespace of an image for an identity.
type NamespaceBuilder interface {
	Build(img *image.Image, id *user.Identity) error
}

// Launcher replaces the calling process by a shell running in an image.
type Launcher struct {
	Catalog  string
	Builder  NamespaceBuilder
	Identity func() (*user.Identity, error)
	Shell    ShellResolver
	Chdir    func(path string) error
	Exec     func(argv0 string, argv []string, envv []string) error
	Logger   *sylog.Logger
}

// ErrRelativeCatalog is returned when a privileged launcher is built
// with a catalog path depending on the caller working directory.
var ErrRelativeCatalog = errors.New("catalog path must be absolute")

// checkCatalogPath refuses a relative catalog when the real and effective
// user differ, the caller would otherwise pick the mounts done as root.
func checkCatalogPath(path string, uid, euid int) error {
	if uid != euid && !filepath.IsAbs(path) {
		return errors.Wrapf(ErrRelativeCatalog, "refusing catalog %s", path)
	}
	return nil
}

// NewLauncher returns a launcher reading the build time catalog and
// acting on the calling process.
func NewLauncher(log *sylog.Logger) (*Launcher, error) {
	if err := checkCatalogPath(buildcfg.CATALOG_PATH, os.Getuid(), os.Geteuid()); err != nil {
		log.Errorf("Invalid image catalog path: %s", err)
		return nil, err
	}
	return &Launcher{
		Catalog:  buildcfg.CATALOG_PATH,
		Builder:  namespace.NewBuilder(log),
		Identity: user.CurrentIdentity,
		Shell:    user.ResolveShell,
		Chdir:    unix.Chdir,
		Exec:     unix.Exec,
		Logger:   log,
	}, nil
}

// Run loads the image, builds its namespace and executes the user shell.
// It only returns on error. Run must be called from a locked OS thread.
func (l *Launcher) Run(opts Options) error {
	log := l.Logger

	img, err := LoadImage(l.Catalog, opts.Image, log)
	if err != nil {
		return err
	}
	if opts.Cwd != "" {
		img.Cwd = opts.Cwd
	}
	if len(opts.Args) > 0 {
		img.Command = strings.Join(opts.Args, " ")
	}

	// the host user database isn't reachable once the root changed
	id, err := l.Identity()
	if err != nil {
		log.Errorf("Unable to determine the real user: %s", err)
		return err
	}
	if opts.ExportEnv {
		img.Environment, err = env.LoadEnvironmentOf(0, log)
	} else {
		img.Environment, err = env.DefaultEnvironment(id.Name, id.Home, log)
	}
	if err != nil {
		return err
	}

	if err := l.Builder.Build(img, id); err != nil {
		return err
	}

	if err := findShell(l.Shell, img, id.UID, log); err != nil {
		return err
	}
	if img.Cwd != "" {
		if err := l.Chdir(img.Cwd); err != nil {
			log.Warningf("Unable to change directory to %s: %s", img.Cwd, err)
		}
	}

	argv := []string{img.ShellName}
	if img.Command != "" {
		argv = append(argv, "-c", img.Command)
	}
	log.Debugf("Executing %s %v", img.ShellPath, argv)
	if err := l.Exec(img.ShellPath, argv, img.Environment); err != nil {
		log.Errorf("Unable to execute %s: %s", img.ShellPath, err)
		return errors.Wrapf(err, "while executing %s", img.ShellPath)
	}
	return nil
}
