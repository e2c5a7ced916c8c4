// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetAFnName(t *testing.T) {
	assert := assert.New(t)

	fnWithPackage := GetAFnName(0)
	assert.Equal("utils.TestGetAFnName", fnWithPackage)

	fn, pkg, _ := GetFuncPackage(0)
	assert.Equal("utils", pkg)
	assert.Equal("TestGetAFnName", fn)

	assert.Equal("utils.TestGetAFnName", GetFnName())
}

func TestHexStr(t *testing.T) {
	assert := assert.New(t)

	s := Uint64ToHexStr(0xDEADBEEF)
	assert.Equal("00000000DEADBEEF", s)

	u64, err := HexStrToUint64(s)
	assert.Nil(err)
	assert.Equal(uint64(0xDEADBEEF), u64)

	_, err = HexStrToUint64("not hex")
	assert.NotNil(err)
}

func TestStopwatch(t *testing.T) {
	assert := assert.New(t)

	sw := NewStopwatch()
	startTime := sw.StartTime
	assert.True(sw.StopTime.IsZero())
	assert.Equal(int64(0), int64(sw.ElapsedTime))
	assert.True(sw.IsRunning)

	sleepTime := 10 * time.Millisecond
	time.Sleep(sleepTime)

	elapsed := sw.Stop()
	assert.False(sw.IsRunning)
	assert.False(sw.StopTime.IsZero())
	assert.Equal(startTime, sw.StartTime)
	assert.True(elapsed >= sleepTime)
	assert.Equal(elapsed, sw.Elapsed())
	assert.Equal(elapsed.Nanoseconds()/int64(time.Millisecond), sw.ElapsedMs())
	assert.Equal(elapsed.Nanoseconds()/int64(time.Microsecond), sw.ElapsedUs())
	assert.Equal(elapsed.String(), sw.ElapsedString())

	sw.Restart()
	assert.True(sw.IsRunning)
	assert.True(sw.StopTime.IsZero())
	assert.Equal(int64(0), int64(sw.ElapsedTime))

	// Restart of a running stopwatch is a no-op
	restartTime := sw.StartTime
	sw.Restart()
	assert.Equal(restartTime, sw.StartTime)
}

func TestJSONify(t *testing.T) {
	assert := assert.New(t)

	type testStruct struct {
		A uint64
		B string
	}

	assert.Equal("{\"A\":1,\"B\":\"two\"}", JSONify(testStruct{A: 1, B: "two"}, false))
	assert.Equal("{\n\t\"A\": 1,\n\t\"B\": \"two\"\n}", JSONify(testStruct{A: 1, B: "two"}, true))
	assert.Contains(JSONify(make(chan int), false), "json.Marshall failed")
}
