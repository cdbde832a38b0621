// Copyright (c) 2018-2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

// Command conf checks an image catalog before installation:
//
//	go run ./etc/conf <catalog> [image...]
//
// Every named image, or the first one when none is named, is loaded the
// way the launcher loads it. The exit status is the number of images
// which failed to load.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sylabs/inception/pkg/image"
	"github.com/sylabs/inception/pkg/sylog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ... <catalog> [image...]")
		os.Exit(1)
	}
	catalog := filepath.Clean(os.Args[1])
	os.Exit(checkCatalog(os.Stdout, catalog, os.Args[2:], sylog.Default()))
}

// checkCatalog loads names from catalog, reporting each result to w, and
// returns the number of failures.
func checkCatalog(w io.Writer, catalog string, names []string, log *sylog.Logger) int {
	if len(names) == 0 {
		names = []string{""}
	}

	failures := 0
	for _, name := range names {
		img, err := image.Load(catalog, name, log)
		if err != nil {
			failures++
			fmt.Fprintf(w, "%s: status %d: %s\n", displayName(name), image.StatusCode(err), err)
			continue
		}
		fmt.Fprintf(w, "%s: ok, root %s, %d mounts, %s isolation\n", img.Name, img.Root, len(img.Mounts), img.Isolation)
	}
	return failures
}

func displayName(name string) string {
	if name == "" {
		return "<first>"
	}
	return name
}
