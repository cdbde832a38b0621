// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// pam_inception is a PAM session module, built with
// -buildmode=c-shared. Sessions opened with PBS_INCEPTION_IMAGE or
// INCEPTION_IMAGE set in the PAM environment run in the named image.
package main

/*
#cgo LDFLAGS: -lpam
#include <stdlib.h>
#include <security/pam_appl.h>
*/
import "C"

import (
	"os"
	"unsafe"

	"github.com/sylabs/inception/internal/app/session"
	"github.com/sylabs/inception/pkg/sylog"
)

// init runs when the module is loaded by the login service, messages go
// to syslog from then on.
func init() {
	sink, err := session.NewSyslogSink()
	if err != nil {
		sylog.Warningf("Unable to connect to syslog: %s", err)
		return
	}
	sylog.SetSink(sink)
	sylog.SetLevel(int(sylog.DebugLevel), false)
}

//export goOpenSession
func goOpenSession(pamh *C.pam_handle_t, cuser *C.char) C.int {
	log := sylog.Default()

	getenv := func(key string) (string, bool) {
		ckey := C.CString(key)
		defer C.free(unsafe.Pointer(ckey))

		value := C.pam_getenv(pamh, ckey)
		if value == nil {
			return "", false
		}
		return C.GoString(value), true
	}

	if cuser == nil {
		if _, ok := session.ImageName(getenv); ok {
			log.Errorf("Error getting user, inception failure")
		}
		return C.PAM_SUCCESS
	}

	if session.NewHook(log).Open(C.GoString(cuser), getenv) == session.Failed {
		// the session process is half way in the image
		os.Exit(1)
	}
	return C.PAM_SUCCESS
}

func main() {}
