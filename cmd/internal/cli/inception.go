// Copyright (c) 2018-2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sylabs/inception/internal/app/inception"
	"github.com/sylabs/inception/internal/pkg/buildcfg"
	"github.com/sylabs/inception/pkg/cmdline"
	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
)

var cmdManager = cmdline.NewCommandManager(inceptionCmd)

const envPrefix = "INCEPTION_"

// inception command flags
var (
	imageName    string
	cwd          string
	exportEnv    bool
	newNamespace bool

	debug   bool
	nocolor bool
	silent  bool
	verbose bool
	quiet   bool
)

// -c|--config
var inceptionImageFlag = cmdline.Flag{
	ID:           "inceptionImageFlag",
	Value:        &imageName,
	DefaultValue: "",
	Name:         "config",
	ShortHand:    "c",
	Usage:        "name of the image to run, the first catalog image by default",
	EnvKeys:      []string{"IMAGE"},
}

// -p|--cwd
var inceptionCwdFlag = cmdline.Flag{
	ID:           "inceptionCwdFlag",
	Value:        &cwd,
	DefaultValue: "",
	Name:         "cwd",
	ShortHand:    "p",
	Usage:        "initial working directory inside the image",
}

// -x|--export-environment
var inceptionExportFlag = cmdline.Flag{
	ID:           "inceptionExportFlag",
	Value:        &exportEnv,
	DefaultValue: false,
	Name:         "export-environment",
	ShortHand:    "x",
	Usage:        "forward the current environment instead of a sanitized one",
}

// -n|--new-namespace
var inceptionNewNamespaceFlag = cmdline.Flag{
	ID:           "inceptionNewNamespaceFlag",
	Value:        &newNamespace,
	DefaultValue: false,
	Name:         "new-namespace",
	ShortHand:    "n",
	Usage:        "create a new mount namespace (always done, kept for compatibility)",
}

// -d|--debug
var inceptionDebugFlag = cmdline.Flag{
	ID:           "inceptionDebugFlag",
	Value:        &debug,
	DefaultValue: false,
	Name:         "debug",
	ShortHand:    "d",
	Usage:        "print debugging information (highest verbosity)",
}

// --nocolor
var inceptionNoColorFlag = cmdline.Flag{
	ID:           "inceptionNoColorFlag",
	Value:        &nocolor,
	DefaultValue: false,
	Name:         "nocolor",
	Usage:        "print without color output",
}

// -s|--silent
var inceptionSilentFlag = cmdline.Flag{
	ID:           "inceptionSilentFlag",
	Value:        &silent,
	DefaultValue: false,
	Name:         "silent",
	ShortHand:    "s",
	Usage:        "only print errors",
}

// -q|--quiet
var inceptionQuietFlag = cmdline.Flag{
	ID:           "inceptionQuietFlag",
	Value:        &quiet,
	DefaultValue: false,
	Name:         "quiet",
	ShortHand:    "q",
	Usage:        "suppress normal output",
}

// -v|--verbose
var inceptionVerboseFlag = cmdline.Flag{
	ID:           "inceptionVerboseFlag",
	Value:        &verbose,
	DefaultValue: false,
	Name:         "verbose",
	ShortHand:    "v",
	Usage:        "print additional information",
}

func init() {
	// options after the first argument belong to the user command
	inceptionCmd.Flags().SetInterspersed(false)

	vt := fmt.Sprintf("%s version {{printf \"%%s\" .Version}}\n", buildcfg.PACKAGE_NAME)
	inceptionCmd.SetVersionTemplate(vt)

	cmdManager.RegisterFlag(&inceptionImageFlag)
	cmdManager.RegisterFlag(&inceptionCwdFlag)
	cmdManager.RegisterFlag(&inceptionExportFlag)
	cmdManager.RegisterFlag(&inceptionNewNamespaceFlag)
	cmdManager.RegisterFlag(&inceptionDebugFlag)
	cmdManager.RegisterFlag(&inceptionNoColorFlag)
	cmdManager.RegisterFlag(&inceptionSilentFlag)
	cmdManager.RegisterFlag(&inceptionQuietFlag)
	cmdManager.RegisterFlag(&inceptionVerboseFlag)
}

func messageLevel() int {
	switch {
	case debug:
		return int(sylog.DebugLevel)
	case verbose:
		return int(sylog.Verbose3Level)
	case quiet:
		return int(sylog.LogLevel)
	case silent:
		return int(sylog.ErrorLevel)
	default:
		return int(sylog.InfoLevel)
	}
}

func preRunE(_ *cobra.Command, _ []string) error {
	cmdManager.UpdateCmdFlagFromEnv(envPrefix)
	if errs := cmdManager.GetError(); len(errs) > 0 {
		return errs[0]
	}
	sylog.SetLevel(messageLevel(), !nocolor)
	return nil
}

// inceptionCmd runs a shell or a command in an image
var inceptionCmd = &cobra.Command{
	DisableFlagsInUseLine: true,
	Args:                  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if newNamespace {
			sylog.Debugf("A new mount namespace is always created")
		}
		opts := inception.Options{
			Image:     imageName,
			Cwd:       cwd,
			ExportEnv: exportEnv,
			Args:      args,
		}
		launcher, err := inception.NewLauncher(sylog.Default())
		if err != nil {
			return err
		}
		return launcher.Run(opts)
	},

	Use:     "inception [options] [command...]",
	Version: buildcfg.PACKAGE_VERSION,
	Short:   "Run a shell or a command inside an image",
	Long: `inception changes the root of the calling user to an image listed in
the system catalog, with the image mounts in place, then runs the user
shell, or the given command with the user shell, as the calling user.`,
	Example: `  $ inception -c centos7
  $ inception -c centos7 -p /scratch make -j4
  $ INCEPTION_IMAGE=centos7 inception -x`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// RootCmd returns the root inception cobra command.
func RootCmd() *cobra.Command {
	return inceptionCmd
}

// ExecuteInception executes the inception command. On success the
// process is replaced by the user shell.
func ExecuteInception() {
	for _, e := range cmdManager.GetError() {
		sylog.Errorf("%s", e)
	}
	// any error reported by command manager is considered as fatal
	if n := len(cmdManager.GetError()); n > 0 {
		sylog.Fatalf("CLI command manager reported %d error(s)", n)
	}

	// set pre run function here to avoid initialization loop error
	inceptionCmd.PreRunE = preRunE

	if err := inceptionCmd.Execute(); err != nil {
		var loadErr *image.LoadError
		if errors.As(err, &loadErr) {
			sylog.Fatalf("Unable to load image: %s (status %d)", err, loadErr.Kind.Code())
		}
		sylog.Fatalf("%s", err)
	}
	os.Exit(0)
}
