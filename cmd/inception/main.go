// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// inception is installed setuid root. It builds the namespace of an image
// and executes the shell of the calling user inside it.
package main

import (
	"runtime"

	"github.com/sylabs/inception/cmd/internal/cli"
)

func init() {
	// unshare, chroot and exec must all happen on the main thread
	runtime.LockOSThread()
}

func main() {
	cli.ExecuteInception()
}
