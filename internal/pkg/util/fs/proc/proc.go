// Copyright (c) 2018-2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package proc

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Path returns the /proc entry name of pid, a zero pid being
// the calling process.
func Path(pid int, name string) string {
	p := "self"
	if pid > 0 {
		p = strconv.Itoa(pid)
	}
	return fmt.Sprintf("/proc/%s/%s", p, name)
}

// ReadEnviron returns the environment block of process pid, as found
// in /proc/<pid>/environ, in its original order.
func ReadEnviron(pid int) ([]string, error) {
	path := Path(pid, "environ")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %s", path, err)
	}
	return SplitEnviron(data), nil
}

// SplitEnviron splits a NUL separated environment block. Empty strings
// at both ends of the block are dropped, inner ones are kept.
func SplitEnviron(data []byte) []string {
	fields := bytes.Split(data, []byte{0})

	start, end := 0, len(fields)
	for start < end && len(fields[start]) == 0 {
		start++
	}
	for end > start && len(fields[end-1]) == 0 {
		end--
	}

	env := make([]string, 0, end-start)
	for _, f := range fields[start:end] {
		env = append(env, string(f))
	}
	return env
}

// MountNamespace returns the mount namespace of the calling thread, as
// shown by /proc/thread-self/ns/mnt.
func MountNamespace() (string, error) {
	ns, err := os.Readlink("/proc/thread-self/ns/mnt")
	if err != nil {
		return "", fmt.Errorf("can't read mount namespace: %s", err)
	}
	return ns, nil
}

// HasFilesystem returns whether the running kernel supports the
// filesystem fs, as listed in /proc/filesystems.
func HasFilesystem(fs string) (bool, error) {
	p, err := os.Open("/proc/filesystems")
	if err != nil {
		return false, fmt.Errorf("can't open /proc/filesystems: %s", err)
	}
	defer p.Close()

	suffix := "\t" + fs
	scanner := bufio.NewScanner(p)
	for scanner.Scan() {
		if strings.HasSuffix(scanner.Text(), suffix) {
			return true, nil
		}
	}
	return false, scanner.Err()
}
