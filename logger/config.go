// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/NVIDIA/rrtree/conf"
)

var logFile *os.File = nil

// multiWriter fans each log entry out to every registered target
type multiWriter struct {
	sync.Mutex
	writers []io.Writer
}

var logTargets multiWriter

func (mw *multiWriter) addWriter(writer io.Writer) {
	mw.Lock()
	mw.writers = append(mw.writers, writer)
	mw.Unlock()
}

func (mw *multiWriter) clear() {
	mw.Lock()
	mw.writers = nil
	mw.Unlock()
}

func (mw *multiWriter) Write(p []byte) (n int, err error) {
	mw.Lock()
	defer mw.Unlock()

	for _, writer := range mw.writers {
		n, err = writer.Write(p)
		if nil != err {
			return
		}
	}

	n = len(p)
	return
}

func addLogTarget(writer io.Writer) {
	logTargets.addWriter(writer)
}

// Up configures logrus from the [Logging] section of confMap.
//
// All options are optional; by default entries go to stderr and trace logging is off.
//
func Up(confMap conf.ConfMap) (err error) {
	log.SetFormatter(&log.TextFormatter{DisableColors: true})

	logTargets.clear()

	logFilePath, _ := confMap.FetchOptionValueString("Logging", "LogFilePath")
	if logFilePath != "" {
		logFile, err = os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if nil != err {
			log.Errorf("couldn't open log file: %v", err)
			return
		}
		logTargets.addWriter(logFile)
	}

	logToConsole, err := confMap.FetchOptionValueBool("Logging", "LogToConsole")
	if nil != err {
		logToConsole = false
	}

	if ("" == logFilePath) || logToConsole {
		logTargets.addWriter(os.Stderr)
	}

	log.SetOutput(&logTargets)

	// NOTE: We always enable max logging in logrus and decide in this package
	//       whether a given trace entry is emitted
	log.SetLevel(log.DebugLevel)

	traceConfSlice, _ := confMap.FetchOptionValueStringSlice("Logging", "TraceLevelLogging")
	setTraceLoggingLevel(traceConfSlice)

	err = nil
	return
}

// Down closes any log file opened by Up and restores logging to stderr.
func Down() (err error) {
	log.SetOutput(os.Stderr)
	logTargets.clear()

	if logFile != nil {
		err = logFile.Close()
		logFile = nil
	}

	setTraceLoggingLevel(nil)

	return
}
