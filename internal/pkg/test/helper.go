// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package test

import (
	"os"
	"testing"

	"gotest.tools/v3/icmd"
)

// HelperEnv is set in the environment of helper processes.
const HelperEnv = "INCEPTION_TEST_HELPER"

// IsHelper returns the scenario a helper process was started for, or
// an empty string in the regular test process.
func IsHelper() string {
	return os.Getenv(HelperEnv)
}

// RunHelper runs the test named testName of the current test binary in
// a new process, with scenario exported as HelperEnv. Operations which
// can't be undone, like changing root or dropping privileges, must run
// in a helper process.
func RunHelper(t *testing.T, testName, scenario string, env ...string) *icmd.Result {
	t.Helper()

	cmd := icmd.Command(os.Args[0], "-test.run=^"+testName+"$", "-test.v")
	cmd.Env = append(os.Environ(), HelperEnv+"="+scenario)
	cmd.Env = append(cmd.Env, env...)

	t.Logf("Running helper %s for scenario %q", testName, scenario)
	return icmd.RunCmd(cmd)
}
