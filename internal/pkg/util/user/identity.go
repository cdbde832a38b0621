/*
  Copyright (c) 2018, Sylabs, Inc. All rights reserved.

  This software is licensed under a 3-clause BSD license.  Please
  consult LICENSE.md file distributed with the sources of this project regarding
  your rights to use or distribute this software.
*/

package user

import (
	"fmt"
	osuser "os/user"
	"strconv"

	"github.com/moby/sys/user"
	"github.com/sylabs/inception/internal/pkg/buildcfg"
)

// user database files, overridden by tests
var (
	passwdPath = buildcfg.PASSWD_PATH
	groupPath  = buildcfg.GROUP_PATH
)

// User represents an Unix user account information
type User struct {
	Name  string
	UID   uint32
	GID   uint32
	Gecos string
	Dir   string
	Shell string
}

func fromPasswd(u user.User) *User {
	shell := u.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	return &User{
		Name:  u.Name,
		UID:   uint32(u.Uid),
		GID:   uint32(u.Gid),
		Gecos: u.Gecos,
		Dir:   u.Home,
		Shell: shell,
	}
}

// convertUser is used for accounts resolved through NSS only, the
// login shell isn't exposed there.
func convertUser(user *osuser.User) (*User, error) {
	uid, err := strconv.ParseUint(user.Uid, 10, 32)
	if err != nil {
		return nil, err
	}
	gid, err := strconv.ParseUint(user.Gid, 10, 32)
	if err != nil {
		return nil, err
	}
	u := &User{
		Name:  user.Username,
		UID:   uint32(uid),
		GID:   uint32(gid),
		Dir:   user.HomeDir,
		Gecos: user.Name,
		Shell: "/bin/sh",
	}
	return u, nil
}

func lookupPasswd(filter func(user.User) bool) (*User, bool) {
	users, err := user.ParsePasswdFileFilter(passwdPath, filter)
	if err != nil || len(users) == 0 {
		return nil, false
	}
	return fromPasswd(users[0]), true
}

// GetPwUID returns a pointer to User structure associated with user uid.
// The passwd file is searched first, then the system user database.
func GetPwUID(uid uint32) (*User, error) {
	if u, ok := lookupPasswd(func(u user.User) bool { return u.Uid == int(uid) }); ok {
		return u, nil
	}
	u, err := osuser.LookupId(strconv.FormatUint(uint64(uid), 10))
	if err != nil {
		return nil, err
	}
	return convertUser(u)
}

// GetPwNam returns a pointer to User structure associated with user name.
// The passwd file is searched first, then the system user database.
func GetPwNam(name string) (*User, error) {
	if u, ok := lookupPasswd(func(u user.User) bool { return u.Name == name }); ok {
		return u, nil
	}
	u, err := osuser.Lookup(name)
	if err != nil {
		return nil, err
	}
	return convertUser(u)
}

// GetGroups returns the group list a process started for name gets:
// gid first, followed by every group of the group file listing name
// as a member.
func GetGroups(name string, gid uint32) ([]uint32, error) {
	groups := []uint32{gid}

	members, err := user.ParseGroupFileFilter(groupPath, func(g user.Group) bool {
		if uint32(g.Gid) == gid {
			return false
		}
		for _, m := range g.List {
			if m == name {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("while reading groups of %s: %w", name, err)
	}

	seen := map[uint32]struct{}{gid: {}}
	for _, g := range members {
		if _, ok := seen[uint32(g.Gid)]; ok {
			continue
		}
		seen[uint32(g.Gid)] = struct{}{}
		groups = append(groups, uint32(g.Gid))
	}
	return groups, nil
}
