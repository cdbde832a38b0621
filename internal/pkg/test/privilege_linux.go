// Copyright (c) 2018-2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package test provides helpers to switch the identity of the test
// process and to run a test binary as a helper process.
package test

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"testing"

	"golang.org/x/sys/unix"
)

// nobody is used when no unprivileged process is found in the parent
// chain, typically when tests run in a root container.
const nobody = 65534

var origUID, origGID, unprivUID, unprivGID int

// UnprivilegedIDs returns the uid and gid DropPrivilege switches to.
func UnprivilegedIDs() (uid, gid int) {
	return unprivUID, unprivGID
}

// DropPrivilege drops privilege. Use this at the start of a test that does
// not require elevated privileges. A matching call to ResetPrivilege must
// occur before the test completes (a defer statement is recommended.)
func DropPrivilege(t *testing.T) {
	t.Helper()

	// setresuid/setresgid modifies the current thread only. To ensure our new
	// uid/gid sticks, we need to lock ourselves to the current OS thread.
	runtime.LockOSThread()

	if os.Getgid() == 0 {
		if err := unix.Setresgid(unprivGID, unprivGID, origGID); err != nil {
			t.Fatalf("failed to set group identity: %v", err)
		}
	}
	if os.Getuid() == 0 {
		if err := unix.Setresuid(unprivUID, unprivUID, origUID); err != nil {
			t.Fatalf("failed to set user identity: %v", err)
		}
	}
}

// ResetPrivilege returns effective privilege to the original user.
func ResetPrivilege(t *testing.T) {
	t.Helper()

	if err := unix.Setresuid(origUID, origUID, unprivUID); err != nil {
		t.Fatalf("failed to reset user identity: %v", err)
	}
	if err := unix.Setresgid(origGID, origGID, unprivGID); err != nil {
		t.Fatalf("failed to reset group identity: %v", err)
	}

	runtime.UnlockOSThread()
}

// WithoutPrivilege wraps the supplied test function with calls to ensure
// the test is run without elevated privileges.
func WithoutPrivilege(f func(t *testing.T)) func(t *testing.T) {
	return func(t *testing.T) {
		t.Helper()

		DropPrivilege(t)
		defer ResetPrivilege(t)

		f(t)
	}
}

// getProcInfo returns the parent PID, UID, and GID associated with the
// supplied PID.
func getProcInfo(pid int) (ppid int, uid int, gid int, err error) {
	f, err := os.Open(fmt.Sprintf("/proc/%v/status", pid))
	if err != nil {
		return 0, 0, 0, err
	}
	defer f.Close()

	for s := bufio.NewScanner(f); s.Scan(); {
		var temp int
		if n, _ := fmt.Sscanf(s.Text(), "PPid:\t%d", &temp); n == 1 {
			ppid = temp
		}
		if n, _ := fmt.Sscanf(s.Text(), "Uid:\t%d", &temp); n == 1 {
			uid = temp
		}
		if n, _ := fmt.Sscanf(s.Text(), "Gid:\t%d", &temp); n == 1 {
			gid = temp
		}
	}
	return ppid, uid, gid, nil
}

// getUnprivIDs searches up the process parent chain to find a process
// with a non-root UID, then returns the UID and GID of that process.
func getUnprivIDs(pid int) (uid int, gid int) {
	for pid > 1 {
		ppid, uid, gid, err := getProcInfo(pid)
		if err != nil {
			break
		}
		if uid != 0 {
			return uid, gid
		}
		pid = ppid
	}
	return nobody, nobody
}

func init() {
	origUID = os.Getuid()
	origGID = os.Getgid()
	unprivUID, unprivGID = getUnprivIDs(os.Getpid())
}
