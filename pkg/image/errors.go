// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package image

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind is the class of an image loading failure.
type ErrorKind int

// Loading failures, their status codes are returned by Code.
const (
	ParseFailure ErrorKind = iota
	NotObject
	MissingRoot
	InvalidRoot
	RootNotDirectory
	MissingMounts
	MissingImages
	MalformedCatalog
	ImageNotFound
	MalformedMount
	InvalidMount
)

var errorKinds = map[ErrorKind]struct {
	code int
	text string
}{
	ParseFailure:     {-1, "unable to read image catalog"},
	NotObject:        {-2, "image entry is not an object"},
	MissingRoot:      {-4, "no image root entry found"},
	InvalidRoot:      {-8, "image root is not a valid path"},
	RootNotDirectory: {-16, "image root is not a directory"},
	MissingMounts:    {-32, "mount list not found"},
	MissingImages:    {-64, "image list not found"},
	MalformedCatalog: {-128, "malformed image catalog"},
	ImageNotFound:    {-256, "image not found"},
	MalformedMount:   {-512, "malformed mount"},
	InvalidMount:     {-1024, "mount validation failed"},
}

// Code returns the status code of the failure class.
func (k ErrorKind) Code() int {
	if e, ok := errorKinds[k]; ok {
		return e.code
	}
	return -1
}

func (k ErrorKind) String() string {
	if e, ok := errorKinds[k]; ok {
		return e.text
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// LoadError is returned by Load.
type LoadError struct {
	Kind ErrorKind
	// Image is the requested image name, if any.
	Image string
	// Path is the catalog file.
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	msg := e.Kind.String()
	if e.Image != "" {
		msg = fmt.Sprintf("image %s: %s", e.Image, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

// Cause returns the underlying error.
func (e *LoadError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error { return e.Err }

// Is matches a LoadError of the same kind.
func (e *LoadError) Is(target error) bool {
	t, ok := target.(*LoadError)
	return ok && t.Kind == e.Kind
}

// StatusCode returns the status code of err: 0 for nil, the code of the
// failure class for a LoadError and -1 for any other error.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind.Code()
	}
	return -1
}
