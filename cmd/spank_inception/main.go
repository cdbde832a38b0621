// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// spank_inception is a SLURM SPANK plugin, built with
// -buildmode=c-shared. It adds the --inception-image option to job
// submission commands, tasks of jobs using it run in the named image.
package main

/*
#include <stdlib.h>
#include <slurm/spank.h>

void inception_slurm_error(const char *msg);
void inception_slurm_debug(const char *msg);
char *inception_getenv(spank_t sp, const char *name);
*/
import "C"

import (
	"unsafe"

	"github.com/sylabs/inception/internal/app/spank"
	"github.com/sylabs/inception/pkg/sylog"
)

// slurmSink forwards messages to the slurm log.
type slurmSink struct{}

func (slurmSink) Emit(level sylog.MessageLevel, message string) {
	cmsg := C.CString(message)
	defer C.free(unsafe.Pointer(cmsg))

	if level <= sylog.WarnLevel {
		C.inception_slurm_error(cmsg)
	} else {
		C.inception_slurm_debug(cmsg)
	}
}

func init() {
	sylog.SetSink(slurmSink{})
	sylog.SetLevel(int(sylog.DebugLevel), false)
}

type job struct {
	sp C.spank_t
}

func (j job) Getenv(name string) (string, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	value := C.inception_getenv(j.sp, cname)
	if value == nil {
		return "", false
	}
	defer C.free(unsafe.Pointer(value))
	return C.GoString(value), true
}

//export goValidateOption
func goValidateOption(optarg *C.char) C.int {
	value := ""
	if optarg != nil {
		value = C.GoString(optarg)
	}
	if err := spank.ValidateOption(value); err != nil {
		sylog.Errorf("%s", err)
		return -1
	}
	return 0
}

//export goTaskInitPrivileged
func goTaskInitPrivileged(sp C.spank_t, image *C.char) C.int {
	if image == nil {
		return 0
	}
	if err := spank.NewPlugin(sylog.Default()).TaskInitPrivileged(C.GoString(image), job{sp: sp}); err != nil {
		return -1
	}
	return 0
}

func main() {}
