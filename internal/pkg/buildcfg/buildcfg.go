// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package buildcfg holds values fixed at build time. They are variables so
// packagers can set them with -ldflags "-X ...".
package buildcfg

//nolint:golint,stylecheck
var (
	PACKAGE_NAME    = "inception"
	PACKAGE_VERSION = "0.3.0"

	// CATALOG_PATH is the image catalog read by the launcher and the
	// session and scheduler integrations. It must be absolute and only
	// writable by root since the launcher runs setuid.
	CATALOG_PATH = "/etc/inception/inception.json"

	// PASSWD_PATH and GROUP_PATH are the host user and group databases.
	PASSWD_PATH = "/etc/passwd"
	GROUP_PATH  = "/etc/group"
)
