// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package require

import (
	"os"
	"testing"

	"github.com/sylabs/inception/internal/pkg/util/fs/proc"
)

// Privilege checks that the current test runs as root, if not the
// current test is skipped with a message.
func Privilege(t *testing.T) {
	t.Helper()

	if os.Geteuid() != 0 {
		t.Skipf("test requires root privileges")
	}
}

// Filesystem checks that the current test could use the
// corresponding filesystem, if the filesystem is not
// listed in /proc/filesystems, the current test is skipped
// with a message.
func Filesystem(t *testing.T, fs string) {
	t.Helper()

	has, err := proc.HasFilesystem(fs)
	if err != nil {
		t.Fatalf("error while checking filesystem presence: %s", err)
	}
	if !has {
		t.Skipf("%s filesystem seems not supported", fs)
	}
}
