// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Program rrtree drives a synthetic insert/delete workload through package
// rrtreepkg and reports the resulting statistics.
//
// The program requires a single argument that is a path to a package config
// formatted configuration to load. Optionally, overrides to the config may
// be passed as additional arguments in the form <section_name>.<option_name>=<value>.
//
// SIGHUP logs the statistics gathered so far; SIGINT and SIGTERM cut the
// workload short.
//
package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"

	"github.com/creachadair/cityhash"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/rrtree/conf"
	"github.com/NVIDIA/rrtree/logger"
	"github.com/NVIDIA/rrtree/rrtree/rrtreepkg"
	"github.com/NVIDIA/rrtree/spatial"
	"github.com/NVIDIA/rrtree/utils"
)

type workloadStruct struct {
	runID           string
	operations      uint64
	deletionPercent uint8
	seed            uint64
	extent          float64
}

func fetchWorkload(confMap conf.ConfMap) (workload *workloadStruct, err error) {
	workload = &workloadStruct{runID: uuid.New().String()}

	workload.operations, err = confMap.FetchOptionValueUint64("Workload", "Operations")
	if nil != err {
		return
	}
	workload.deletionPercent, err = confMap.FetchOptionValueUint8("Workload", "DeletionPercent")
	if nil != err {
		return
	}
	if workload.deletionPercent > 100 {
		err = fmt.Errorf("[Workload]DeletionPercent (%d) must not exceed 100", workload.deletionPercent)
		return
	}
	workload.seed, err = confMap.FetchOptionValueUint64("Workload", "Seed")
	if nil != err {
		return
	}
	workload.extent, err = confMap.FetchOptionValueFloat64("Workload", "Extent")
	if nil != err {
		return
	}
	if workload.extent <= 0.0 {
		err = fmt.Errorf("[Workload]Extent (%v) must be positive", workload.extent)
		return
	}

	return
}

// objectID derives a well spread ID from the run and the object's ordinal.
func (workload *workloadStruct) objectID(ordinal uint64) uint64 {
	return cityhash.Hash64([]byte(fmt.Sprintf("%s:%d", workload.runID, ordinal)))
}

func (workload *workloadStruct) run(stopChan chan struct{}, doneChan chan error) {
	var (
		err     error
		live    []*spatial.Object
		ordinal uint64
		rng     *rand.Rand
	)

	rng = rand.New(rand.NewSource(int64(workload.seed)))
	live = make([]*spatial.Object, 0)
	stopwatch := utils.NewStopwatch()

	for opNum := uint64(0); opNum < workload.operations; opNum++ {
		select {
		case <-stopChan:
			doneChan <- nil
			return
		default:
		}

		if (len(live) > 0) && (rng.Intn(100) < int(workload.deletionPercent)) {
			victimIndex := rng.Intn(len(live))
			victim := live[victimIndex]
			live[victimIndex] = live[len(live)-1]
			live = live[:len(live)-1]
			err = rrtreepkg.Delete(victim)
		} else {
			x := rng.Float64() * workload.extent
			y := rng.Float64() * workload.extent
			side := rng.Float64() * workload.extent / 100.0
			object := spatial.NewObject(workload.objectID(ordinal), spatial.NewRectangle(x, y, x+side, y+side))
			ordinal++
			live = append(live, object)
			err = rrtreepkg.Insert(object)
		}
		if nil != err {
			doneChan <- err
			return
		}
	}

	err = rrtreepkg.Flush()
	if nil != err {
		doneChan <- err
		return
	}

	err = rrtreepkg.Validate()
	if nil != err {
		doneChan <- err
		return
	}

	stored, _, err := rrtreepkg.Len()
	if nil != err {
		doneChan <- err
		return
	}
	if stored != len(live) {
		doneChan <- fmt.Errorf("tree holds %d objects, expected %d", stored, len(live))
		return
	}

	_ = stopwatch.Stop()
	logger.Infof("run %s: %s operations leaving %s objects in %s",
		workload.runID, humanize.Comma(int64(workload.operations)), humanize.Comma(int64(stored)), stopwatch.ElapsedString())

	doneChan <- nil
}

func main() {
	var (
		confMap        conf.ConfMap
		doneChan       chan error
		err            error
		signalChan     chan os.Signal
		signalReceived os.Signal
		stopChan       chan struct{}
		workload       *workloadStruct
	)

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "no .conf file specified\n")
		os.Exit(1)
	}

	confMap, err = conf.MakeConfMapFromFile(os.Args[1])
	if nil != err {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = confMap.UpdateFromStrings(os.Args[2:])
	if nil != err {
		fmt.Fprintf(os.Stderr, "failed to apply config overrides: %v\n", err)
		os.Exit(1)
	}

	err = logger.Up(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "logger.Up(confMap) failed: %v\n", err)
		os.Exit(1)
	}

	workload, err = fetchWorkload(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "bad [Workload] section: %v\n", err)
		os.Exit(1)
	}

	// Start rrtree

	err = rrtreepkg.Start(confMap)
	if nil != err {
		fmt.Fprintf(os.Stderr, "rrtreepkg.Start(confMap) failed: %v\n", err)
		os.Exit(1)
	}

	logger.Infof("UP (run %s)", workload.runID)

	// Arm signal handler used to indicate interruption/termination & wait on it
	//
	// Note: signal'd chan must be buffered to avoid race with window between
	// arming handler and blocking on the chan read

	signalChan = make(chan os.Signal, 1)

	signal.Notify(signalChan, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)

	stopChan = make(chan struct{})
	doneChan = make(chan error, 1)

	go workload.run(stopChan, doneChan)

	for {
		select {
		case signalReceived = <-signalChan:
			if unix.SIGHUP == signalReceived {
				logger.Infof("Received SIGHUP")
				err = rrtreepkg.Signal()
				if nil != err {
					logger.WarnfWithError(err, "rrtreepkg.Signal() failed")
				}
				continue
			}
			logger.Infof("Received %v", signalReceived)
			close(stopChan)
			err = <-doneChan
		case err = <-doneChan:
		}
		break
	}

	if nil != err {
		logger.ErrorfWithError(err, "workload failed")
	}

	err = rrtreepkg.Signal()
	if nil != err {
		logger.WarnfWithError(err, "rrtreepkg.Signal() failed")
	}

	// Stop rrtree

	logger.Infof("DOWN")

	err = rrtreepkg.Stop()
	if nil != err {
		fmt.Fprintf(os.Stderr, "rrtreepkg.Stop() failed: %v\n", err)
		os.Exit(1)
	}

	_ = logger.Down()
}
