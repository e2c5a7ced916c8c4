// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

package bucketstats

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// a structure containing all of the bucketstats statistics types and other
// fields; useful for testing
type allStatTypes struct {
	MyName   string // not a statistic
	bar      int    // also not a statistic
	Total1   Total
	Average1 Average
	Bucket1  BucketLog2Round
}

// verify that all of the bucketstats statistics types satisfy the appropriate
// interface (this is really a compile time test; it fails if they don't)
func TestBucketStatsInterfaces(t *testing.T) {
	var (
		total1       Total
		average1     Average
		bucket1      BucketLog2Round
		totalIface   Totaler
		averageIface Averager
		bucketIface  Bucketer
	)

	totalIface = &total1
	totalIface = &average1
	averageIface = &average1
	averageIface = &bucket1
	bucketIface = &bucket1

	averageIface = bucketIface
	totalIface = averageIface
	_ = totalIface
}

func TestRegister(t *testing.T) {
	assert := assert.New(t)

	var myStats = allStatTypes{
		Total1:  Total{Name: "my total"},
		Bucket1: BucketLog2Round{NBucket: 4},
	}

	Register("main", "myStats", &myStats)

	assert.Equal("my_total", myStats.Total1.Name)
	assert.Equal("Average1", myStats.Average1.Name)
	assert.Equal("Bucket1", myStats.Bucket1.Name)
	assert.Equal(uint(10), myStats.Bucket1.NBucket)

	// registering the same name twice panics
	assert.Panics(func() { Register("main", "myStats", &myStats) })

	UnRegister("main", "myStats")

	// now it can be registered again
	Register("main", "myStats", &myStats)
	UnRegister("main", "myStats")

	// unregistering an unknown group is silently ignored
	UnRegister("main", "myStats")

	assert.Panics(func() { Register("", "", &myStats) })
	assert.Panics(func() { Register("main", "notAPointer", myStats) })

	type duplicateNames struct {
		First  Total
		Second Total
	}
	assert.Panics(func() {
		Register("main", "dup", &duplicateNames{First: Total{Name: "x"}, Second: Total{Name: "x"}})
	})
}

func TestTotalAndAverage(t *testing.T) {
	assert := assert.New(t)

	var myStats allStatTypes

	Register("main", "totals", &myStats)
	defer UnRegister("main", "totals")

	assert.Equal(uint64(0), myStats.Average1.AverageGet())

	for i := uint64(1); i <= 10; i++ {
		myStats.Total1.Add(i)
		myStats.Average1.Add(i)
	}
	myStats.Total1.Increment()

	assert.Equal(uint64(56), myStats.Total1.TotalGet())
	assert.Equal(uint64(55), myStats.Average1.TotalGet())
	assert.Equal(uint64(10), myStats.Average1.CountGet())
	assert.Equal(uint64(5), myStats.Average1.AverageGet())

	statsString := SprintStats(StatFormatParsable1, "main", "totals")
	assert.Contains(statsString, "main.totals.Total1 total:56\n")
	assert.Contains(statsString, "main.totals.Average1 total:55 count:10 avg:5\n")

	assert.Panics(func() { SprintStats(StatFormatParsable1, "main", "unknown") })
}

func TestBucketLog2Round(t *testing.T) {
	assert := assert.New(t)

	for _, tc := range []struct {
		value  uint64
		bucket uint
	}{
		{0, 0}, {1, 1}, {2, 2}, {3, 3}, {5, 3}, {6, 4}, {11, 4}, {12, 5}, {22, 5}, {23, 6},
		{1 << 20, 21}, {^uint64(0), 65},
	} {
		assert.Equal(tc.bucket, log2RoundIdx(tc.value), "value %d", tc.value)
	}

	var myStats allStatTypes

	Register("main", "buckets", &myStats)
	defer UnRegister("main", "buckets")

	for _, value := range []uint64{0, 1, 2, 3, 4, 5, 6, 100} {
		myStats.Bucket1.Add(value)
	}
	myStats.Bucket1.Add(^uint64(0)) // lands in the last bucket

	dist := myStats.Bucket1.DistGet()
	assert.Equal(65, len(dist))
	assert.Equal(uint64(1), dist[0].Count)
	assert.Equal(uint64(1), dist[1].Count)
	assert.Equal(uint64(1), dist[2].Count)
	assert.Equal(uint64(3), dist[3].Count)
	assert.Equal(uint64(1), dist[4].Count)
	assert.Equal(uint64(1), dist[8].Count)
	assert.Equal(uint64(1), dist[64].Count)

	assert.Equal(uint64(3), dist[3].RangeLow)
	assert.Equal(uint64(5), dist[3].RangeHigh)
	assert.Equal(uint64(4), dist[3].MeanVal)
	assert.Equal(uint64(4), dist[3].NominalVal)

	assert.Equal(uint64(9), myStats.Bucket1.CountGet())

	statsString := myStats.Bucket1.Sprint(StatFormatParsable1, "main", "buckets")
	assert.True(strings.HasPrefix(statsString, "main.buckets.Bucket1 total:"))
	assert.Contains(statsString, " 0:1 1:1 2:1 4:3 8:1")
	assert.Contains(statsString, " 2^63:1\n")
}

func TestBucketLog2RoundClamped(t *testing.T) {
	assert := assert.New(t)

	type smallBucketStats struct {
		Sizes BucketLog2Round
	}

	myStats := smallBucketStats{Sizes: BucketLog2Round{NBucket: 12}}

	Register("", "small", &myStats)
	defer UnRegister("", "small")

	myStats.Sizes.Add(1 << 40)

	dist := myStats.Sizes.DistGet()
	assert.Equal(12, len(dist))
	assert.Equal(uint64(1), dist[11].Count)

	assert.Contains(SprintStats(StatFormatParsable1, "*", "*"), "small.Sizes total:")
}
