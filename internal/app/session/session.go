// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package session implements the login session hook: it moves the
// session process into the image requested through the session
// environment before the user shell is started.
package session

import (
	"github.com/sylabs/inception/internal/app/inception"
	"github.com/sylabs/inception/internal/pkg/buildcfg"
	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
)

// ImageEnvKeys are the session environment variables holding the image
// name, by priority.
var ImageEnvKeys = []string{"PBS_INCEPTION_IMAGE", "INCEPTION_IMAGE"}

// Outcome is the result of a session opening.
type Outcome int

const (
	// Uncontained means no image was requested.
	Uncontained Outcome = iota
	// Skipped means an image was requested but can't be used, the
	// session continues uncontained.
	Skipped
	// Contained means the session now runs in the image.
	Contained
	// Failed means the namespace was partially built, the session
	// process must not continue.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Uncontained:
		return "uncontained"
	case Skipped:
		return "skipped"
	case Contained:
		return "contained"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Hook opens login sessions.
type Hook struct {
	Catalog string
	// LookupUser checks the session user exists.
	LookupUser func(name string) (*user.User, error)
	// Identity returns the identity the namespace is built for. The
	// session process still runs as root, privileges are dropped later
	// by the login service.
	Identity func() (*user.Identity, error)
	Setup    func(img *image.Image, id *user.Identity, log *sylog.Logger) error
	Logger   *sylog.Logger
}

// NewHook returns a hook reading the build time catalog.
func NewHook(log *sylog.Logger) *Hook {
	return &Hook{
		Catalog:    buildcfg.CATALOG_PATH,
		LookupUser: user.GetPwNam,
		Identity:   user.CurrentIdentity,
		Setup:      inception.SetupNamespace,
		Logger:     log,
	}
}

// ImageName returns the requested image name from the session
// environment, getenv returning false for unset variables.
func ImageName(getenv func(string) (string, bool)) (string, bool) {
	for _, key := range ImageEnvKeys {
		if name, ok := getenv(key); ok {
			return name, true
		}
	}
	return "", false
}

// Open opens the session of username. Only a Failed outcome must stop
// the session, every other outcome lets the login continue.
func (h *Hook) Open(username string, getenv func(string) (string, bool)) Outcome {
	log := h.Logger

	name, ok := ImageName(getenv)
	if !ok {
		log.Warningf("Running uncontained")
		return Uncontained
	}

	if _, err := h.LookupUser(username); err != nil {
		log.Errorf("Error getting user %s: %s, inception failure", username, err)
		return Skipped
	}

	img, err := inception.LoadImage(h.Catalog, name, log)
	if err != nil {
		log.Warningf("Inception requested, but unable to find user: %s image: %s (status %d)", username, name, image.StatusCode(err))
		return Skipped
	}

	id, err := h.Identity()
	if err != nil {
		log.Errorf("Unable to determine the session identity: %s", err)
		return Skipped
	}

	log.Warningf("Containerizing user: %s image: %s", username, img.Name)
	if err := h.Setup(img, id, log); err != nil {
		log.Errorf("Unable to containerize user %s: %s", username, err)
		return Failed
	}
	return Contained
}
