// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVIDIA/rrtree/conf"
)

func testNestedFunc() {
	myint := 3
	ctx := TraceEnter("the prefix", 1, myint)
	defer ctx.TraceExit("the suffix")
}

func TestAPI(t *testing.T) {
	assert := assert.New(t)

	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogToConsole=false",
		"Logging.TraceLevelLogging=logger",
	})
	assert.Nil(err)

	err = Up(confMap)
	assert.Nil(err)

	var target LogTarget
	target.Init(10)
	AddLogTarget(target)

	Tracef("hello there!")
	assert.Equal(1, target.LogBuf.TotalEntries)
	assert.Contains(target.LogBuf.LogEntries[0], "hello there!")
	assert.Contains(target.LogBuf.LogEntries[0], "package=logger")
	assert.Contains(target.LogBuf.LogEntries[0], "function=TestAPI")

	Warnf("%v: %v", "IAmTheCaller", "this is the error")
	assert.Equal(2, target.LogBuf.TotalEntries)
	assert.Contains(target.LogBuf.LogEntries[0], "level=warning")

	ErrorfWithError(fmt.Errorf("this is the error"), "we had an error!")
	assert.Equal(3, target.LogBuf.TotalEntries)
	assert.Contains(target.LogBuf.LogEntries[0], "this is the error")

	testNestedFunc()
	assert.Equal(5, target.LogBuf.TotalEntries)
	assert.Contains(target.LogBuf.LogEntries[1], ">> called the prefix 1 3")
	assert.Contains(target.LogBuf.LogEntries[0], "<< returning the suffix")

	assert.Panics(func() { PanicfWithError(fmt.Errorf("boom"), "panicking") })

	err = Down()
	assert.Nil(err)
}

func TestTraceDisabled(t *testing.T) {
	assert := assert.New(t)

	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.TraceLevelLogging=none",
	})
	assert.Nil(err)

	err = Up(confMap)
	assert.Nil(err)

	var target LogTarget
	target.Init(4)
	AddLogTarget(target)

	Tracef("not emitted")
	assert.Equal(0, target.LogBuf.TotalEntries)

	Infof("emitted")
	assert.Equal(1, target.LogBuf.TotalEntries)

	err = Down()
	assert.Nil(err)
}

func TestLogFile(t *testing.T) {
	assert := assert.New(t)

	testDir, err := ioutil.TempDir("", "logger_test")
	assert.Nil(err)
	defer os.RemoveAll(testDir)

	logFilePath := filepath.Join(testDir, "rrtree.log")

	confMap, err := conf.MakeConfMapFromStrings([]string{
		"Logging.LogFilePath=" + logFilePath,
	})
	assert.Nil(err)

	err = Up(confMap)
	assert.Nil(err)

	Infof("written to %s", "the file")

	err = Down()
	assert.Nil(err)

	contents, err := ioutil.ReadFile(logFilePath)
	assert.Nil(err)
	assert.Contains(string(contents), "written to the file")
}
