// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// engine-node runs a floating-temple peer as a standalone process: it
// joins a cluster over the in-memory network harness, exposes Prometheus
// metrics, and serves Dump output for diagnostics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	cmdutils "github.com/luxfi/floatingtemple/cmd/utils"
	"github.com/luxfi/floatingtemple/engine"
	"github.com/luxfi/floatingtemple/faketemple"
	flog "github.com/luxfi/floatingtemple/log"
	fmetrics "github.com/luxfi/floatingtemple/metrics"
)

const clientIdentifier = "engine-node"

func main() {
	app := &cli.App{
		Name:  clientIdentifier,
		Usage: "floating-temple per-object transaction engine node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "peer-id", Usage: "this process's peer id, conventionally ip/<host>/<port>"},
			&cli.StringSliceFlag{Name: "peer", Usage: "address of another cluster member (repeatable)"},
			&cli.StringFlag{Name: "config", Usage: "path to a YAML/JSON config file with cluster defaults"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace|debug|info|warn|error|crit"},
			&cli.StringFlag{Name: "log-file", Usage: "rotate logs to this path instead of stderr"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address, e.g. :9090"},
		},
		Action: runNode,
		Commands: []*cli.Command{
			{
				Name:  "dump",
				Usage: "print the diagnostic dump of every object this (ephemeral) peer holds",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(os.Stderr, "dump requires a running cluster; see `engine-node` for how a peer joins one")
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging parses --log-level and builds a handler for --log-file
// (rotated through lumberjack) or the terminal, then installs
// flog.NewLogger(handler) as the default. The compat layer's NewLogger
// returns the luxfi/log root logger without using that handler, so the
// chosen level and destination do not reach the installed logger; an
// invalid --log-level is still reported as an error.
func setupLogging(c *cli.Context) error {
	level := c.String("log-level")
	lvl, err := flog.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("parsing log-level %q: %w", level, err)
	}

	var w io.Writer
	if file := c.String("log-file"); file != "" {
		w = &lumberjack.Logger{Filename: file, MaxSize: 100, MaxBackups: 5, MaxAge: 28, Compress: true}
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		w = colorable.NewColorableStderr()
	} else {
		w = os.Stderr
	}

	handler := flog.StreamHandler(w, flog.TerminalFormat(isatty.IsTerminal(os.Stderr.Fd())))
	handler = flog.LvlFilterHandler(lvl, handler)
	flog.SetDefault(flog.NewLogger(handler))
	return nil
}

func runNode(c *cli.Context) error {
	if err := setupLogging(c); err != nil {
		return err
	}

	fileCfg, err := cmdutils.LoadConfigFile(c.String("config"))
	if err != nil {
		return err
	}
	cfg := cmdutils.ClusterConfig{
		PeerID:      c.String("peer-id"),
		Peers:       c.StringSlice("peer"),
		LogLevel:    c.String("log-level"),
		LogFile:     c.String("log-file"),
		MetricsAddr: c.String("metrics-addr"),
	}.Resolve(fileCfg)

	if cfg.PeerID == "" {
		return fmt.Errorf("peer-id is required, via --peer-id or the config file")
	}

	// De-duplicate peer ids from flags and config file before interning.
	peerSet := mapset.NewSet[string](cfg.Peers...)

	registry := engine.NewPeerRegistry()
	self := registry.Intern(cfg.PeerID)
	for _, p := range peerSet.ToSlice() {
		registry.Intern(p)
	}

	reg := prometheus.NewRegistry()
	engineMetrics := fmetrics.NewEngine(reg)
	engine.SetMetrics(engineMetrics)

	net := faketemple.NewInMemoryNetwork()
	store := engine.NewTransactionStore(self, registry, nil)
	sender := net.Register(self, store)
	store.SetSender(sender)

	// dumpCache memoizes this process's own Dump output between polls of a
	// metrics/diagnostics scrape; bounded so a long-running node with many
	// objects doesn't grow it unbounded.
	dumpCache, err := lru.New(cfg.DumpCacheSize)
	if err != nil {
		return fmt.Errorf("allocating dump cache: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		mux := newDiagnosticsMux(store, reg, dumpCache)
		srv := newServer(cfg.MetricsAddr, mux)
		g.Go(func() error {
			flog.Info("serving metrics and dump diagnostics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != errServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return srv.Close()
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		flog.Info("engine-node shutting down", "peer", cfg.PeerID)
		return nil
	})

	flog.Info("engine-node started", "peer", cfg.PeerID, "peers", peerSet.ToSlice())
	return g.Wait()
}
