// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package spank

import (
	"errors"
	"testing"

	"github.com/sylabs/inception/internal/pkg/util/user"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

type job map[string]string

func (j job) Getenv(name string) (string, bool) {
	v, ok := j[name]
	return v, ok
}

func TestValidateOption(t *testing.T) {
	assert.NilError(t, ValidateOption("centos7"))
	assert.Check(t, errors.Is(ValidateOption(""), ErrEmptyImage))
	assert.Check(t, errors.Is(ValidateOption("  "), ErrEmptyImage))
}

type fakeSetup struct {
	img *image.Image
	err error
}

func (f *fakeSetup) setup(img *image.Image, _ *user.Identity, _ *sylog.Logger) error {
	f.img = img
	return f.err
}

func newPlugin(t *testing.T) (*Plugin, *fakeSetup) {
	t.Helper()

	root := fs.NewDir(t, "spankroot")
	t.Cleanup(root.Remove)
	catalog := fs.NewFile(t, "spank-catalog", fs.WithContent(`{
  "images": [
    {"name": "centos7", "imgroot": "`+root.Path()+`", "cwd": "/", "mounts": []}
  ]
}`))
	t.Cleanup(catalog.Remove)

	setup := &fakeSetup{}
	return &Plugin{
		Catalog:  catalog.Path(),
		Identity: func() (*user.Identity, error) { return &user.Identity{Name: "root"}, nil },
		Setup:    setup.setup,
		Logger:   sylog.New(sylog.SinkFunc(func(sylog.MessageLevel, string) {}), int(sylog.DebugLevel)),
	}, setup
}

func TestTaskInitPrivileged(t *testing.T) {
	errMount := errors.New("mount failed")

	tests := []struct {
		name     string
		image    string
		job      job
		setupErr error
		cwd      string
		setup    bool
		code     int
		err      error
	}{
		{name: "no image", image: "", job: job{}},
		{name: "remote cwd", image: "centos7", job: job{"SLURM_REMOTE_CWD": "/scratch", "PWD": "/home"}, cwd: "/scratch", setup: true},
		{name: "pwd", image: "centos7", job: job{"PWD": "/home"}, cwd: "/home", setup: true},
		{name: "catalog cwd", image: "CentOS7", job: job{"SLURM_REMOTE_CWD": ""}, cwd: "/", setup: true},
		{name: "unknown image", image: "ubuntu", job: job{}, code: -256},
		{name: "setup failure", image: "centos7", job: job{}, setupErr: errMount, cwd: "/", setup: true, code: -1, err: errMount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, setup := newPlugin(t)
			setup.err = tt.setupErr

			err := p.TaskInitPrivileged(tt.image, tt.job)
			assert.Check(t, is.Equal(image.StatusCode(err), tt.code))
			if tt.err != nil {
				assert.Check(t, errors.Is(err, tt.err), "got %v", err)
			}
			if !tt.setup {
				assert.Check(t, setup.img == nil)
				return
			}
			assert.Assert(t, setup.img != nil)
			assert.Check(t, is.Equal(setup.img.Name, "centos7"))
			assert.Check(t, is.Equal(setup.img.Cwd, tt.cwd))
		})
	}
}
