// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

//go:build !inception_unsafe

package fs

// MountPairCheck reports whether bind mount pairs are validated before
// mounting.
const MountPairCheck = true
