// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package sylog implements the leveled logger used by inception.
//
// Messages are handed to a Sink. Library code receives a *Logger explicitly;
// a nil *Logger logs through the process default, which writes to standard
// error until an adapter installs its own sink with SetSink.
package sylog
