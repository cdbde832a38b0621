// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package spank implements the job scheduler plugin: job tasks started
// with the image option run in the requested image.
package spank

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sylabs/inception/internal/app/inception"
	"github.com/sylabs/inception/internal/pkg/buildcfg"
	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
)

const (
	// OptionName is the job option carrying the image name.
	OptionName = "inception-image"
	// OptionArgInfo describes the option argument in the scheduler help.
	OptionArgInfo = "[image]"
	// OptionUsage is the option help.
	OptionUsage = "run job tasks inside the named inception image"
)

// CwdEnvKeys are the job environment variables holding the working
// directory of the task, by priority.
var CwdEnvKeys = []string{"SLURM_REMOTE_CWD", "PWD"}

// ErrEmptyImage is returned when the image option has an empty value.
var ErrEmptyImage = errors.New("empty image name")

// Job gives access to the job of the task being initialized.
type Job interface {
	// Getenv returns a variable of the job environment.
	Getenv(name string) (string, bool)
}

// Plugin initializes job tasks.
type Plugin struct {
	Catalog string
	// Identity returns the identity the namespace is built for. Tasks
	// are initialized as root, the scheduler drops privileges itself.
	Identity func() (*user.Identity, error)
	Setup    func(img *image.Image, id *user.Identity, log *sylog.Logger) error
	Logger   *sylog.Logger
}

// NewPlugin returns a plugin reading the build time catalog.
func NewPlugin(log *sylog.Logger) *Plugin {
	return &Plugin{
		Catalog:  buildcfg.CATALOG_PATH,
		Identity: user.CurrentIdentity,
		Setup:    inception.SetupNamespace,
		Logger:   log,
	}
}

// ValidateOption checks the value of the image option.
func ValidateOption(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("--%s: %w", OptionName, ErrEmptyImage)
	}
	return nil
}

// TaskInitPrivileged moves the task into imageName. It does nothing when
// no image was requested. An error means the task must not start.
func (p *Plugin) TaskInitPrivileged(imageName string, job Job) error {
	log := p.Logger

	if imageName == "" {
		return nil
	}
	log.Debugf("image is: %s", imageName)

	img, err := inception.LoadImage(p.Catalog, imageName, log)
	if err != nil {
		log.Errorf("Unable to load image %s (status %d)", imageName, image.StatusCode(err))
		return err
	}
	for _, key := range CwdEnvKeys {
		if cwd, ok := job.Getenv(key); ok && cwd != "" {
			img.Cwd = cwd
			break
		}
	}

	id, err := p.Identity()
	if err != nil {
		log.Errorf("Unable to determine the task identity: %s", err)
		return err
	}
	if err := p.Setup(img, id, log); err != nil {
		log.Errorf("Unable to set up image %s: %s", img.Name, err)
		return errors.Wrapf(err, "while setting up image %s", img.Name)
	}
	return nil
}
