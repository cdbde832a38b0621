// Copyright (c) 2019, Sylabs Inc. All rights reserved.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package session

import (
	"io"
	"log/syslog"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/sylabs/inception/pkg/sylog"
)

// SyslogTag identifies session messages in the system log.
const SyslogTag = "pam_inception"

// LogrusSink forwards log messages to a logrus logger.
type LogrusSink struct {
	Logger *logrus.Logger
}

// Emit implements sylog.Sink. Fatal messages are logged as errors, the
// session hook never exits the login service.
func (s *LogrusSink) Emit(level sylog.MessageLevel, message string) {
	switch {
	case level <= sylog.ErrorLevel:
		s.Logger.Error(message)
	case level == sylog.WarnLevel:
		s.Logger.Warn(message)
	case level <= sylog.InfoLevel:
		s.Logger.Info(message)
	default:
		s.Logger.Debug(message)
	}
}

// NewSyslogSink returns a sink writing to the authentication facility of
// the local system log only.
func NewSyslogSink() (*LogrusSink, error) {
	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_AUTH|syslog.LOG_INFO, SyslogTag)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(hook)

	return &LogrusSink{Logger: logger}, nil
}
