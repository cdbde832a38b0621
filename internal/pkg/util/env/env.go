// Copyright (c) 2018, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package env builds the environment handed to the contained process.
// Environments are plain KEY=VALUE slices, the live process environment
// is never modified.
package env

import (
	"errors"

	"github.com/sylabs/inception/internal/pkg/util/fs/proc"
	"github.com/sylabs/inception/pkg/sylog"
)

// DefaultPath is the PATH of a sanitized environment.
const DefaultPath = "/usr/bin:/bin"

// ErrNoUsername is returned when a sanitized environment is requested for
// a user without name.
var ErrNoUsername = errors.New("no username for the real user")

// DefaultEnvironment returns a minimal login environment for username:
// HOME, PATH and LOGNAME, in this order. HOME is / when home is empty.
func DefaultEnvironment(username, home string, log *sylog.Logger) ([]string, error) {
	if username == "" {
		log.Errorf("Unable to determine the real user name")
		return nil, ErrNoUsername
	}
	if home == "" {
		log.Debugf("No home directory for %s, using /", username)
		home = "/"
	}
	return []string{
		"HOME=" + home,
		"PATH=" + DefaultPath,
		"LOGNAME=" + username,
	}, nil
}

// LoadEnvironmentOf returns the environment of process pid unchanged, a
// zero pid being the calling process.
func LoadEnvironmentOf(pid int, log *sylog.Logger) ([]string, error) {
	environ, err := proc.ReadEnviron(pid)
	if err != nil {
		log.Errorf("Unable to read process environment: %s", err)
		return nil, err
	}
	log.Debugf("Forwarding %d environment variables", len(environ))
	return environ, nil
}
