// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package image

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/pkg/errors"
	"github.com/sylabs/inception/internal/pkg/util/fs"
	"github.com/sylabs/inception/internal/pkg/util/fs/mount"
	"github.com/sylabs/inception/pkg/sylog"
)

var errNotString = errors.New("not a string")

// getString returns the string value of key in data. found is false
// when the key doesn't exist.
func getString(data []byte, key string) (s string, found bool, err error) {
	value, dataType, _, err := jsonparser.Get(data, key)
	if err == jsonparser.KeyPathNotFoundError {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	if dataType != jsonparser.String {
		return "", true, errors.Wrapf(errNotString, "%s is %v", key, dataType)
	}
	s, err = jsonparser.ParseString(value)
	return s, true, err
}

type loader struct {
	path string
	name string
	log  *sylog.Logger
}

func (l *loader) fail(kind ErrorKind, err error, format string, a ...interface{}) error {
	l.log.Errorf(format, a...)
	return &LoadError{Kind: kind, Image: l.name, Path: l.path, Err: err}
}

// Load reads the image catalog filename and returns the image called
// name, compared case insensitively. The first matching entry wins. An
// empty name selects the first entry of the catalog. Failures are
// returned as *LoadError, see StatusCode.
func Load(filename, name string, log *sylog.Logger) (*Image, error) {
	l := &loader{path: filename, name: name, log: log}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, l.fail(ParseFailure, err, "Unable to read image catalog %s: %s", filename, err)
	}
	if err := json.Unmarshal(data, new(json.RawMessage)); err != nil {
		return nil, l.fail(ParseFailure, err, "Unable to parse image catalog %s: %s", filename, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return nil, l.fail(MissingImages, nil, "Config Parse Error: Image List not found")
	}

	isolation := Permissive
	if s, found, err := getString(data, "isolation"); err != nil {
		return nil, l.fail(MalformedCatalog, err, "Config Parse Error: invalid isolation: %s", err)
	} else if found {
		switch Isolation(strings.ToLower(s)) {
		case Permissive:
		case Strict:
			isolation = Strict
		default:
			return nil, l.fail(MalformedCatalog, errors.Errorf("unknown isolation %q", s), "Config Parse Error: unknown isolation %q", s)
		}
	}

	images, dataType, _, err := jsonparser.Get(data, "images")
	if err != nil || dataType != jsonparser.Array {
		return nil, l.fail(MissingImages, err, "Config Parse Error: Image List not found")
	}

	entry, err := l.selectEntry(images)
	if err != nil {
		return nil, err
	}

	img, err := l.loadImage(entry)
	if err != nil {
		return nil, err
	}
	img.Isolation = isolation
	log.Debugf("Loaded image %s from %s with %d mounts", img.Name, filename, len(img.Mounts))
	return img, nil
}

// selectEntry scans images in document order and stops at the first entry
// matching the requested name, or at the first entry when no name is
// requested. Entries after the selected one are not inspected.
func (l *loader) selectEntry(images []byte) ([]byte, error) {
	var (
		selected []byte
		done     bool
		scanErr  error
	)

	_, err := jsonparser.ArrayEach(images, func(entry []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if done {
			return
		}
		if dataType != jsonparser.Object {
			done = true
			scanErr = l.fail(NotObject, nil, "no configuration object found")
			return
		}

		imageName, found, err := getString(entry, "name")
		if !found {
			done = true
			scanErr = l.fail(MalformedCatalog, err, "Config Parse Error: Image without a name found")
			return
		} else if err != nil {
			done = true
			scanErr = l.fail(MalformedCatalog, err, "Config Parse Error: Image name is invalid")
			return
		}

		if l.name == "" || strings.EqualFold(imageName, l.name) {
			done = true
			selected = entry
		}
	})
	if scanErr != nil {
		return nil, scanErr
	}
	if err != nil {
		return nil, l.fail(MalformedCatalog, err, "Config Parse Error: %s", err)
	}
	if selected == nil {
		return nil, l.fail(ImageNotFound, nil, "Error: Image not found: %s", l.name)
	}
	return selected, nil
}

func (l *loader) loadImage(entry []byte) (*Image, error) {
	img := &Image{}
	img.Name, _, _ = getString(entry, "name")
	if l.name == "" {
		l.name = img.Name
	}

	root, found, err := getString(entry, "imgroot")
	if !found {
		return nil, l.fail(MissingRoot, err, "No valid image root entry found")
	} else if err != nil {
		return nil, l.fail(InvalidRoot, err, "No valid image root found")
	}
	if !filepath.IsAbs(root) {
		return nil, l.fail(InvalidRoot, errors.Errorf("%s is not an absolute path", root), "Image root is not an absolute path: %s", root)
	}
	if !fs.IsDir(root) {
		return nil, l.fail(RootNotDirectory, nil, "Image root not a directory: %s", root)
	}
	img.Root = filepath.Clean(root)

	for _, key := range []string{"cwd", "command"} {
		s, _, err := getString(entry, key)
		if err != nil {
			return nil, l.fail(MalformedCatalog, err, "Config Parse Error: invalid %s of image %s", key, img.Name)
		}
		if key == "cwd" {
			img.Cwd = s
		} else {
			img.Command = s
		}
	}

	mounts, dataType, _, err := jsonparser.Get(entry, "mounts")
	if err != nil || dataType != jsonparser.Array {
		return nil, l.fail(MissingMounts, err, "Error: mount list not found")
	}

	var mountErr error
	_, err = jsonparser.ArrayEach(mounts, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if mountErr != nil {
			return
		}
		m, err := l.parseMount(value, dataType)
		if err != nil {
			mountErr = err
			return
		}
		if err := l.checkMount(img.Root, m); err != nil {
			mountErr = err
			return
		}
		img.Mounts = append(img.Mounts, m)
	})
	if mountErr != nil {
		return nil, mountErr
	}
	if err != nil {
		return nil, l.fail(MalformedMount, err, "Error: Malformed Mount: %s", err)
	}

	return img, nil
}

func (l *loader) parseMount(value []byte, dataType jsonparser.ValueType) (Mount, error) {
	m := Mount{Kind: BindKind}

	if dataType != jsonparser.Object {
		return m, l.fail(MalformedMount, nil, "Error: Malformed Mount: %s", value)
	}

	from, fromFound, fromErr := getString(value, "from")
	to, toFound, toErr := getString(value, "to")
	if !fromFound || !toFound || fromErr != nil || toErr != nil {
		return m, l.fail(MalformedMount, nil, "Error: Malformed Mount: %s", value)
	}
	m.Source = from
	m.Target = to

	kind, found, err := getString(value, "type")
	if err != nil {
		return m, l.fail(MalformedMount, err, "Error: Malformed Mount: invalid type: %s", value)
	}
	if found {
		m.Kind = kind
		m.ExplicitKind = true
	}
	return m, nil
}

// checkMount resolves the mount target under root and validates the mount
// pair. Pseudo filesystems with a "none" source skip the pair check.
func (l *loader) checkMount(root string, m Mount) error {
	target, err := fs.ResolveTarget(root, m.Target)
	if err != nil {
		return l.fail(InvalidMount, err, "Error: check paths: %s -> %s: %s", m.Source, m.Target, err)
	}

	if m.Kind == BindKind {
		if !filepath.IsAbs(m.Source) {
			return l.fail(InvalidMount, errors.Errorf("%s is not an absolute path", m.Source), "Error: bind source must be an absolute path: %s", m.Source)
		}
	} else if !mount.IsAuthorizedFS(m.Kind) {
		return l.fail(InvalidMount, mount.ErrNotAuthorized, "Error: mount type %s is not authorized: %s -> %s", m.Kind, m.Source, m.Target)
	}

	if m.IsPseudo() || !fs.MountPairCheck {
		return nil
	}
	if err := fs.ValidateMountPair(m.Source, target, l.log); err != nil {
		return l.fail(InvalidMount, err, "Error: check paths: %s -> %s", m.Source, m.Target)
	}
	return nil
}
