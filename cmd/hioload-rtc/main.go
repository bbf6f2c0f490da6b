//go:build linux

// File: cmd/hioload-rtc/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hioload-rtc binds the configured ICE host candidates, spreads them across
// pinned worker threads and reflects media back to each peer. SIGHUP reloads
// the log level; SIGINT and SIGTERM shut down.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/spf13/pflag"

	"github.com/momentics/hioload-rtc/affinity"
	"github.com/momentics/hioload-rtc/candidate"
	"github.com/momentics/hioload-rtc/control"
	"github.com/momentics/hioload-rtc/engine"
	"github.com/momentics/hioload-rtc/socket"
	"github.com/momentics/hioload-rtc/tuple"
	"github.com/momentics/hioload-rtc/worker"
)

const (
	rtpComponent = 1
	flowIdle     = 2 * time.Minute
)

type options struct {
	configPath string
	logLevel   string
	noUring    bool
	dumpPath   string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("hioload-rtc", pflag.ContinueOnError)
	fs.StringVarP(&o.configPath, "config", "c", "", "YAML or TOML config file (default $"+control.EnvConfigPath+")")
	fs.StringVar(&o.logLevel, "log-level", "", "override log.level: trace, debug, info, warn, error, disabled")
	fs.BoolVar(&o.noUring, "no-uring", false, "disable the io_uring send path")
	fs.StringVar(&o.dumpPath, "dump-path", "", "override diagnostics.dump_path")
	err := fs.Parse(args)
	return o, err
}

// loadConfig reads the file and applies command-line overrides.
func loadConfig(o options) (*control.Config, error) {
	cfg, err := control.LoadConfig(control.ResolvePath(o.configPath))
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		if _, err := control.ParseLevel(o.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = o.logLevel
	}
	if o.noUring {
		cfg.Engine.Enabled = false
	}
	if o.dumpPath != "" {
		cfg.Diagnostics.DumpPath = o.dumpPath
	}
	return cfg, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err == nil {
		err = run(o)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "hioload-rtc: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	level, _ := control.ParseLevel(cfg.Log.Level)
	lf := control.NewLoggerFactory(level, os.Stderr)
	log := lf.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	counters := control.NewCounters()

	if cfg.Engine.Enabled {
		ok, err := engine.IsRuntimeSupported()
		if err != nil {
			return err
		}
		if !ok {
			log.Warn("kernel too old for io_uring sends, all workers use the synchronous path")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	workers, wait, err := startWorkers(runCtx, cancel, cfg, lf, probes, counters)
	if err != nil {
		cancel()
		wait()
		return err
	}

	flows := newFlowTable()
	probes.RegisterProbe("reflector.flows", func() any { return flows.t.Len() })
	if err := bindListeners(ctx, cfg, workers, lf, log, probes, flows, counters); err != nil {
		cancel()
		wait()
		return err
	}

	var hooks control.ReloadHooks
	hooks.Register(func(c *control.Config) {
		lvl, _ := control.ParseLevel(c.Log.Level)
		lf.SetLevel(lvl)
		log.Infof("log level set to %s", lvl)
	})

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	interval, _ := cfg.Diagnostics.Interval()
	var dumpC <-chan time.Time
	if interval > 0 && cfg.Diagnostics.DumpPath != "" {
		t := time.NewTicker(interval)
		defer t.Stop()
		dumpC = t.C
	}
	sweep := time.NewTicker(flowIdle / 2)
	defer sweep.Stop()

	for {
		select {
		case <-runCtx.Done():
			log.Info("shutting down")
			cancel()
			return wait()
		case <-hup:
			next, err := loadConfig(o)
			if err != nil {
				log.Errorf("reload: %v", err)
				continue
			}
			hooks.TriggerSync(next)
		case <-dumpC:
			if err := control.WriteDump(cfg.Diagnostics.DumpPath, probes, counters); err != nil {
				log.Warnf("diagnostics dump: %v", err)
			}
		case now := <-sweep.C:
			if n := flows.sweep(now, flowIdle); n > 0 {
				log.Debugf("expired %d idle flows", n)
			}
		}
	}
}

// startWorkers launches one goroutine per worker and waits until each is ready.
// The returned wait function blocks until all have exited and reports the first error.
func startWorkers(ctx context.Context, cancel context.CancelFunc, cfg *control.Config, lf logging.LoggerFactory, probes *control.DebugProbes, counters *control.Counters) ([]*worker.Worker, func() error, error) {
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	wait := func() error {
		wg.Wait()
		return firstErr
	}

	workers := make([]*worker.Worker, 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		cpu := -1
		if cfg.PinCPUs {
			cpu = affinity.CPUFor(i, runtime.NumCPU())
		}
		w, err := worker.New(worker.Config{
			ID:  i,
			CPU: cpu,
			Engine: engine.Config{
				QueueDepth:    cfg.Engine.QueueDepth,
				SingleIssuer:  cfg.Engine.SingleIssuer,
				LoggerFactory: lf,
			},
			DisableEngine: !cfg.Engine.Enabled,
		}, lf, probes, counters)
		if err != nil {
			return nil, wait, err
		}
		workers = append(workers, w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				errOnce.Do(func() { firstErr = err })
				cancel()
			}
		}()
	}
	for _, w := range workers {
		select {
		case <-w.Ready():
		case <-ctx.Done():
			return nil, wait, fmt.Errorf("worker %d did not start: %w", w.ID(), context.Cause(ctx))
		}
	}
	return workers, wait, nil
}

// bindListeners opens every configured socket, logs its candidate line and
// hands it to a worker round-robin.
func bindListeners(ctx context.Context, cfg *control.Config, workers []*worker.Worker, lf logging.LoggerFactory, log logging.LeveledLogger, probes *control.DebugProbes, flows *flowTable, counters *control.Counters) error {
	for i, l := range cfg.Listen {
		w := workers[i%len(workers)]
		proto, _ := tuple.ParseProtocol(l.Protocol)
		addr, _ := l.AddrPort()
		priority := candidate.ComputePriority(l.LocalPreference, rtpComponent)

		var (
			cand  candidate.Candidate
			start func()
		)
		switch proto {
		case tuple.ProtocolUDP:
			sock, err := socket.ListenUDP(ctx, addr)
			if err != nil {
				return err
			}
			cand = candidate.NewUDP(sock, priority, l.AnnouncedAddress)
			start = func() {
				if err := startUDPReflector(w, sock, lf, flows, counters); err != nil {
					log.Errorf("udp %s: %v", sock.LocalAddr(), err)
					sock.Close()
				}
			}
		case tuple.ProtocolTCP:
			srv, err := socket.ListenTCP(ctx, addr)
			if err != nil {
				return err
			}
			cand = candidate.NewTCP(srv, priority, l.AnnouncedAddress)
			start = func() {
				if err := startTCPListener(w, srv, lf, flows, counters); err != nil {
					log.Errorf("tcp %s: %v", srv.LocalAddr(), err)
					srv.Close()
				}
			}
		}

		attr, err := cand.SDPAttribute(rtpComponent)
		if err != nil {
			log.Warnf("candidate %d: %v", i, err)
		} else {
			log.Infof("a=%s", attr)
		}
		info := cand.Info()
		probes.RegisterProbe(fmt.Sprintf("candidate.%d", i), func() any { return info })

		if err := w.Post(start); err != nil {
			return err
		}
	}
	return nil
}
