// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sylog

import (
	"bytes"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

type record struct {
	level   MessageLevel
	message string
}

type recorder struct {
	records []record
}

func (r *recorder) Emit(level MessageLevel, message string) {
	r.records = append(r.records, record{level, message})
}

func TestLoggerLevelFilter(t *testing.T) {
	rec := &recorder{}
	l := New(rec, int(WarnLevel))

	l.Errorf("error %d", 1)
	l.Warningf("warning %s", "two")
	l.Infof("info")
	l.Debugf("debug")

	assert.Assert(t, is.Len(rec.records, 2))
	assert.Check(t, is.Equal(rec.records[0], record{ErrorLevel, "error 1"}))
	assert.Check(t, is.Equal(rec.records[1], record{WarnLevel, "warning two"}))
}

func TestLoggerTrimsNewline(t *testing.T) {
	rec := &recorder{}
	l := New(rec, int(DebugLevel))

	l.Verbosef("mounting %s\n\n", "/etc")

	assert.Assert(t, is.Len(rec.records, 1))
	assert.Check(t, is.Equal(rec.records[0].message, "mounting /etc"))
}

func TestNilLoggerUsesDefault(t *testing.T) {
	saved := std.Load()
	defer std.Store(saved)

	rec := &recorder{}
	SetSink(rec)
	SetLevel(int(InfoLevel), false)

	var l *Logger
	l.Infof("hello")
	l.Debugf("hidden")

	assert.Check(t, is.Len(rec.records, 1))
	assert.Check(t, is.Equal(l.Level(), InfoLevel))
}

func TestSetSinkReplacesPrevious(t *testing.T) {
	saved := std.Load()
	defer std.Store(saved)

	first := &recorder{}
	second := &recorder{}

	SetSink(first)
	Warningf("to first")
	SetSink(second)
	Warningf("to second")

	assert.Check(t, is.Len(first.records, 1))
	assert.Check(t, is.Len(second.records, 1))
	assert.Check(t, is.Equal(second.records[0].message, "to second"))
}

func TestSetLevel(t *testing.T) {
	saved := std.Load()
	defer std.Store(saved)

	levels := []MessageLevel{
		FatalLevel, ErrorLevel, WarnLevel, LogLevel,
		InfoLevel, VerboseLevel, Verbose2Level, Verbose3Level, DebugLevel,
	}
	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			SetLevel(int(level), false)
			assert.Check(t, is.Equal(GetLevel(), int(level)))
		})
	}
}

func TestWriterSinkPrefix(t *testing.T) {
	tests := []struct {
		name   string
		level  MessageLevel
		color  bool
		prefix string
	}{
		{"ErrorPlain", ErrorLevel, false, "ERROR:   "},
		{"WarningPlain", WarnLevel, false, "WARNING: "},
		{"InfoColor", InfoLevel, true, "\x1b[34mINFO:   "},
		{"VerboseColorless", VerboseLevel, true, "VERBOSE: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewWriterSink(&buf, tt.color).Emit(tt.level, "message")

			out := buf.String()
			assert.Check(t, strings.HasPrefix(out, tt.prefix), "got %q", out)
			assert.Check(t, strings.HasSuffix(out, "message\n"), "got %q", out)
		})
	}
}

func TestWriterSinkDebugDetails(t *testing.T) {
	var buf bytes.Buffer
	l := New(NewWriterSink(&buf, false), int(DebugLevel))

	l.Debugf("details")

	assert.Check(t, is.Contains(buf.String(), "[U="))
	assert.Check(t, is.Contains(buf.String(), "TestWriterSinkDebugDetails()"))
}
