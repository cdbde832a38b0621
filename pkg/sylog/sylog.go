// Copyright (c) 2018-2021, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sylog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
)

const messageLevelEnv = "INCEPTION_MESSAGELEVEL"

var messageColors = map[MessageLevel]color.Attribute{
	FatalLevel: color.FgRed,
	ErrorLevel: color.FgRed,
	WarnLevel:  color.FgYellow,
	InfoLevel:  color.FgBlue,
}

// Sink receives formatted log messages. Emit is the only operation a
// logging backend has to provide.
type Sink interface {
	Emit(level MessageLevel, message string)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(level MessageLevel, message string)

// Emit calls f(level, message).
func (f SinkFunc) Emit(level MessageLevel, message string) {
	f(level, message)
}

// WriterSink writes messages to an io.Writer with a level prefix.
type WriterSink struct {
	w     io.Writer
	color bool
}

// NewWriterSink returns a sink writing to w, with a colored level prefix
// when color is true.
func NewWriterSink(w io.Writer, color bool) *WriterSink {
	return &WriterSink{w: w, color: color}
}

func (s *WriterSink) prefix(level MessageLevel) string {
	label := fmt.Sprintf("%-8s", level.String()+":")
	if attr, ok := messageColors[level]; ok && s.color {
		c := color.New(attr)
		c.EnableColor()
		label = c.Sprint(label)
	}

	if level < DebugLevel {
		return label + " "
	}

	funcName := "????()"
	if pc, _, _, ok := runtime.Caller(4); ok {
		if details := runtime.FuncForPC(pc); details != nil {
			funcNameSplit := strings.Split(details.Name(), ".")
			funcName = funcNameSplit[len(funcNameSplit)-1] + "()"
		}
	}
	uidStr := fmt.Sprintf("[U=%d,P=%d]", os.Geteuid(), os.Getpid())

	return fmt.Sprintf("%s%-19s%-30s", label, uidStr, funcName)
}

// Emit writes message to the underlying writer.
func (s *WriterSink) Emit(level MessageLevel, message string) {
	fmt.Fprintf(s.w, "%s%s\n", s.prefix(level), message)
}

// Logger filters messages by level and forwards them to a Sink.
// A nil *Logger is valid and logs through the process default.
type Logger struct {
	sink  Sink
	level MessageLevel
}

// New returns a logger emitting messages up to level to sink.
func New(sink Sink, level int) *Logger {
	return &Logger{sink: sink, level: MessageLevel(level)}
}

var std atomic.Pointer[Logger]

func init() {
	level := InfoLevel
	if l, err := strconv.Atoi(os.Getenv(messageLevelEnv)); err == nil {
		level = MessageLevel(l)
	}
	std.Store(New(NewWriterSink(os.Stderr, true), int(level)))
}

// Default returns the process default logger.
func Default() *Logger {
	return std.Load()
}

// SetSink replaces the sink of the process default logger. Subsequent
// messages logged through the default go to sink only.
func SetSink(sink Sink) {
	std.Store(New(sink, int(std.Load().level)))
}

// SetLevel explicitly sets the level of the process default logger. When
// color is false, the default sink is recreated without colors.
func SetLevel(l int, color bool) {
	cur := std.Load()
	sink := cur.sink
	if ws, ok := sink.(*WriterSink); ok && ws.color != color {
		sink = NewWriterSink(ws.w, color)
	}
	std.Store(New(sink, l))
}

// GetLevel returns the level of the process default logger as integer.
func GetLevel() int {
	return int(std.Load().level)
}

func (l *Logger) get() *Logger {
	if l == nil {
		return std.Load()
	}
	return l
}

// Level returns the maximum level emitted by l.
func (l *Logger) Level() MessageLevel {
	return l.get().level
}

func (l *Logger) writef(msgLevel MessageLevel, format string, a ...interface{}) {
	lg := l.get()
	if lg.level < msgLevel || lg.sink == nil {
		return
	}
	message := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	lg.sink.Emit(msgLevel, message)
}

// Errorf writes an ERROR level message.
func (l *Logger) Errorf(format string, a ...interface{}) {
	l.writef(ErrorLevel, format, a...)
}

// Warningf writes a WARNING level message.
func (l *Logger) Warningf(format string, a ...interface{}) {
	l.writef(WarnLevel, format, a...)
}

// Infof writes an INFO level message.
func (l *Logger) Infof(format string, a ...interface{}) {
	l.writef(InfoLevel, format, a...)
}

// Verbosef writes a VERBOSE level message.
func (l *Logger) Verbosef(format string, a ...interface{}) {
	l.writef(VerboseLevel, format, a...)
}

// Debugf writes a DEBUG level message.
func (l *Logger) Debugf(format string, a ...interface{}) {
	l.writef(DebugLevel, format, a...)
}

// Fatalf is equivalent to a call to Errorf followed by os.Exit(255). Code that
// may be imported by other projects should NOT use Fatalf.
func Fatalf(format string, a ...interface{}) {
	std.Load().writef(FatalLevel, format, a...)
	os.Exit(255)
}

// Errorf writes an ERROR level message to the default logger.
func Errorf(format string, a ...interface{}) {
	std.Load().writef(ErrorLevel, format, a...)
}

// Warningf writes a WARNING level message to the default logger.
func Warningf(format string, a ...interface{}) {
	std.Load().writef(WarnLevel, format, a...)
}

// Infof writes an INFO level message to the default logger.
func Infof(format string, a ...interface{}) {
	std.Load().writef(InfoLevel, format, a...)
}

// Verbosef writes a VERBOSE level message to the default logger.
func Verbosef(format string, a ...interface{}) {
	std.Load().writef(VerboseLevel, format, a...)
}

// Debugf writes a DEBUG level message to the default logger.
func Debugf(format string, a ...interface{}) {
	std.Load().writef(DebugLevel, format, a...)
}
