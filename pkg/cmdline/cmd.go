// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Package cmdline registers cobra flags which may also be set from
// environment variables.
package cmdline

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CommandManager holds the root command and its flags
type CommandManager struct {
	rootCmd *cobra.Command
	errPool []error
	fm      *flagManager
}

// NewCommandManager instantiates a CommandManager
func NewCommandManager(rootCmd *cobra.Command) *CommandManager {
	if rootCmd == nil {
		panic("nil root command passed")
	}
	return &CommandManager{
		rootCmd: rootCmd,
		errPool: make([]error, 0),
		fm:      newFlagManager(),
	}
}

func (m *CommandManager) pushError(f string, a ...interface{}) {
	m.errPool = append(m.errPool, fmt.Errorf(f, a...))
}

// GetError returns the error pool
func (m *CommandManager) GetError() []error {
	return m.errPool
}

// GetRootCmd returns the root command
func (m *CommandManager) GetRootCmd() *cobra.Command {
	return m.rootCmd
}

// RegisterFlag registers a flag for the root command
func (m *CommandManager) RegisterFlag(flag *Flag) {
	if err := m.fm.registerCmdFlag(flag, m.rootCmd); err != nil {
		m.pushError("%s", err)
	}
}

// UpdateCmdFlagFromEnv updates flag's values based on environment variables
// named envPrefix followed by one of the flag's keys. Flags set on the
// command line are left untouched.
func (m *CommandManager) UpdateCmdFlagFromEnv(envPrefix string) {
	for _, e := range m.fm.updateCmdFlagFromEnv(m.rootCmd, envPrefix) {
		m.pushError("%s", e)
	}
}
