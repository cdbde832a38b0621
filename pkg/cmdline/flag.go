// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package cmdline

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag holds information about a command flag
type Flag struct {
	ID           string
	Value        interface{}
	DefaultValue interface{}
	Name         string
	ShortHand    string
	Usage        string
	Deprecated   string
	Hidden       bool
	EnvKeys      []string
	EnvHandler   EnvHandler
}

// flagManager manages cobra command flags and store them
// in a hash map
type flagManager struct {
	flags map[string]*Flag
}

func newFlagManager() *flagManager {
	return &flagManager{
		flags: make(map[string]*Flag),
	}
}

func (m *flagManager) setFlagOptions(flag *Flag, cmd *cobra.Command) error {
	if len(flag.EnvKeys) > 0 {
		if err := cmd.Flags().SetAnnotation(flag.Name, "envkey", flag.EnvKeys); err != nil {
			return fmt.Errorf("could not set envkey annotation: %s", err)
		}
	}
	if err := cmd.Flags().SetAnnotation(flag.Name, "ID", []string{flag.ID}); err != nil {
		return fmt.Errorf("could not set ID annotation: %s", err)
	}

	if flag.Deprecated != "" {
		if err := cmd.Flags().MarkDeprecated(flag.Name, flag.Deprecated); err != nil {
			return fmt.Errorf("could not mark flag as deprecated: %s", err)
		}
	}
	if flag.Hidden {
		if err := cmd.Flags().MarkHidden(flag.Name); err != nil {
			return fmt.Errorf("could not mark flag as hidden: %s", err)
		}
	}
	return nil
}

func (m *flagManager) registerCmdFlag(flag *Flag, cmd *cobra.Command) error {
	if cmd == nil {
		return fmt.Errorf("nil command provided")
	}
	if _, ok := m.flags[flag.ID]; ok {
		return fmt.Errorf("flag %s already registered", flag.ID)
	}

	switch t := flag.DefaultValue.(type) {
	case string:
		v, ok := flag.Value.(*string)
		if !ok {
			return fmt.Errorf("flag %s: value must be a *string", flag.ID)
		}
		if flag.EnvHandler == nil && len(flag.EnvKeys) > 0 {
			flag.EnvHandler = EnvString
		}
		cmd.Flags().StringVarP(v, flag.Name, flag.ShortHand, t, flag.Usage)
	case bool:
		v, ok := flag.Value.(*bool)
		if !ok {
			return fmt.Errorf("flag %s: value must be a *bool", flag.ID)
		}
		if flag.EnvHandler == nil && len(flag.EnvKeys) > 0 {
			flag.EnvHandler = EnvBool
		}
		cmd.Flags().BoolVarP(v, flag.Name, flag.ShortHand, t, flag.Usage)
	default:
		return fmt.Errorf("flag of type %T are not supported", t)
	}

	if err := m.setFlagOptions(flag, cmd); err != nil {
		return err
	}
	m.flags[flag.ID] = flag
	return nil
}

func (m *flagManager) updateCmdFlagFromEnv(cmd *cobra.Command, prefix string) (errs []error) {
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		envKeys, ok := flag.Annotations["envkey"]
		if !ok {
			return
		}
		id, ok := flag.Annotations["ID"]
		if !ok {
			return
		}
		mflag, ok := m.flags[id[0]]
		if !ok || mflag.EnvHandler == nil {
			return
		}
		for _, key := range envKeys {
			val, set := os.LookupEnv(prefix + key)
			if !set {
				continue
			}
			if err := mflag.EnvHandler(flag, val); err != nil {
				errs = append(errs, err)
			}
			// first key set wins
			return
		}
	})
	return errs
}
