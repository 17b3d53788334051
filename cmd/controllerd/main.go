// Command controllerd runs the stream controller: the epoch-fencing
// stream registry, range ledger, and WAL-object commit planner, served
// over HTTP.
// Grounded on the teacher's cmd/authn/main.go startup sequence: flag
// parsing, signal handling, fail-fast config/db loading via
// cos.ExitLogf, nlog.Flush on exit.
/*
 * Copyright (c) 2024, StreamWorks. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/streamworks/streamctl/backend"
	"github.com/streamworks/streamctl/cmn/cos"
	"github.com/streamworks/streamctl/cmn/nlog"
	"github.com/streamworks/streamctl/config"
	"github.com/streamworks/streamctl/core/ctl"
	"github.com/streamworks/streamctl/rpc"
	"github.com/streamworks/streamctl/stats"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "controller configuration file")
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		fmt.Println("streamctl controller dev build")
		os.Exit(0)
	}
	installSignalHandler()
	flag.Parse()

	cos.InitShortID(uint64(time.Now().UnixNano()))

	cfg, err := config.Load(configPath)
	if err != nil {
		cos.ExitLogf("failed to load configuration: %v", err)
	}

	journal, err := newFileJournal(cfg.Snapshot.JournalPath)
	if err != nil {
		cos.ExitLogf("failed to open metadata journal: %v", err)
	}

	state := ctl.NewState()
	ctl.ReplayAll(state, journal.Records())

	registry, err := ctl.NewSnapshotRegistry(state, cfg.Snapshot.CheckpointPath, cfg.Snapshot.CompactDir)
	if err != nil {
		cos.ExitLogf("failed to init snapshot registry: %v", err)
	}
	defer registry.Close()
	go runDiscardLoop(registry, cfg.Snapshot.DiscardEvery, cfg.Snapshot.RetainSnapshots)

	driver, err := newBackendDriver(cfg.Backend)
	if err != nil {
		cos.ExitLogf("failed to init backend driver %q: %v", cfg.Backend.Provider, err)
	}
	collaborator := backend.NewCollaborator(driver)
	manager := ctl.NewManager(collaborator)

	metrics := stats.NewRegistry()
	metrics.MustRegister(prometheus.DefaultRegisterer)
	go serveMetrics(":9090")

	srv := rpc.NewServer(manager, state, journal, metrics)
	nlog.Infof("controller starting on %s", cfg.RPC.ListenAddr)
	if err := srv.ListenAndServe(cfg.RPC.ListenAddr); err != nil {
		nlog.Flush(true)
		cos.ExitLogf("rpc server failed: %v", err)
	}
	nlog.Flush(true)
}

func newBackendDriver(cfg config.BackendConfig) (backend.Driver, error) {
	ctx := context.Background()
	switch cfg.Provider {
	case "s3":
		return backend.NewS3Driver(ctx, cfg.Bucket, cfg.Region)
	case "azure":
		return backend.NewAzureDriver(cfg.Endpoint, cfg.Bucket)
	case "gcs":
		return backend.NewGCSDriver(ctx, cfg.Bucket)
	case "hdfs":
		return backend.NewHDFSDriver(cfg.Endpoint, cfg.Bucket)
	case "memory", "":
		return backend.NewMemoryDriver(), nil
	default:
		return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}
}

// runDiscardLoop periodically snapshots the live state, then discards
// every snapshot older than the oldest of the last retain offsets -
// compacting it to disk (lz4) and sweeping stale compacted blobs
// (godirwalk) - so the in-memory and on-disk snapshot sets stay bounded
// instead of growing for the life of the process.
func runDiscardLoop(registry *ctl.SnapshotRegistry, every time.Duration, retain int) {
	if every <= 0 {
		every = time.Minute
	}
	if retain <= 0 {
		retain = 3
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	offsets := make([]int64, 0, retain+1)
	for range ticker.C {
		registry.Snapshot()
		offsets = append(offsets, registry.LiveOffset())
		if len(offsets) <= retain {
			continue
		}
		watermark := offsets[len(offsets)-retain]
		if err := registry.Discard(watermark); err != nil {
			nlog.Warningf("snapshot discard at watermark %d failed: %v", watermark, err)
		}
		offsets = offsets[len(offsets)-retain:]
	}
}

func serveMetrics(addr string) {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	if err := fasthttp.ListenAndServe(addr, handler); err != nil {
		nlog.Warningf("metrics server on %s failed: %v", addr, err)
	}
}

func installSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		nlog.Flush(true)
		os.Exit(0)
	}()
}
