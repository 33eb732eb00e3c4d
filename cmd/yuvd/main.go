// Command yuvd runs a standalone YUV protocol node: it watches a Bitcoin
// Core-style full node for new blocks, validates and attaches token
// transactions committed to Bitcoin outputs, and serves the result over
// JSON-RPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/yuvprotocol/node/attach"
	"github.com/yuvprotocol/node/bulletproof"
	"github.com/yuvprotocol/node/chainclient"
	"github.com/yuvprotocol/node/check"
	"github.com/yuvprotocol/node/confirm"
	"github.com/yuvprotocol/node/config"
	"github.com/yuvprotocol/node/controller"
	"github.com/yuvprotocol/node/eventbus"
	"github.com/yuvprotocol/node/log"
	"github.com/yuvprotocol/node/rpcserver"
	"github.com/yuvprotocol/node/store"
)

func main() {
	defaults := config.DefaultConfig()

	cfg := defaults
	datadir := flag.String("datadir", defaults.DataDir, "node data directory")
	flag.StringVar(&cfg.ListenAddr, "listen", defaults.ListenAddr, "JSON-RPC listen address")
	flag.StringVar(&cfg.Network, "network", defaults.Network, "network name (mainnet/testnet/regtest)")
	flag.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: debug|info|warn|error")
	flag.StringVar(&cfg.LogFile, "log-file", defaults.LogFile, "log file path (stdout only if empty)")
	flag.StringVar(&cfg.ChainRPCURL, "chain-rpc-url", defaults.ChainRPCURL, "Bitcoin Core-style JSON-RPC endpoint")
	flag.StringVar(&cfg.ChainRPCUser, "chain-rpc-user", defaults.ChainRPCUser, "chain RPC basic auth username")
	flag.StringVar(&cfg.ChainRPCPass, "chain-rpc-pass", defaults.ChainRPCPass, "chain RPC basic auth password")
	jsonLog := flag.Bool("json-log", false, "emit JSON-formatted console logs")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg.DataDir = *datadir

	if loaded, err := config.LoadConfig(config.ConfigPath(cfg.DataDir)); err == nil {
		loaded.DataDir = cfg.DataDir
		if set["listen"] {
			loaded.ListenAddr = cfg.ListenAddr
		}
		if set["network"] {
			loaded.Network = cfg.Network
		}
		if set["log-level"] {
			loaded.LogLevel = cfg.LogLevel
		}
		if set["log-file"] {
			loaded.LogFile = cfg.LogFile
		}
		if set["chain-rpc-url"] {
			loaded.ChainRPCURL = cfg.ChainRPCURL
		}
		if set["chain-rpc-user"] {
			loaded.ChainRPCUser = cfg.ChainRPCUser
		}
		if set["chain-rpc-pass"] {
			loaded.ChainRPCPass = cfg.ChainRPCPass
		}
		cfg = loaded
	} else if err != config.ErrConfigNotFound {
		fatalf("config load failed: %v", err)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		fatalf("invalid config: %v", err)
	}

	if err := log.Init(cfg.LogLevel, *jsonLog, cfg.LogFile); err != nil {
		fatalf("log init failed: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		fatalf("datadir create failed: %v", err)
	}
	if err := config.SaveConfig(config.ConfigPath(cfg.DataDir), cfg); err != nil {
		fatalf("config save failed: %v", err)
	}

	db, err := store.OpenBolt(filepath.Join(cfg.DataDir, "yuv.db"), uint32(cfg.PageSize))
	if err != nil {
		fatalf("store open failed: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()
	mempoolStore := db.Mempool()
	chromaStore := db.Chromas()
	frozenStore := db.Frozen()
	pageIndex := db.Pages(uint32(cfg.PageSize))

	chainClient := chainclient.New(chainclient.Config{
		URL:      cfg.ChainRPCURL,
		User:     cfg.ChainRPCUser,
		Password: cfg.ChainRPCPass,
	})
	isTracked := chainclient.MempoolTracked(mempoolStore)
	chainAdapter := chainclient.NewTrackerAdapter(ctx, chainClient, isTracked)
	tracker := confirm.New(cfg.ConfirmationsDepth, cfg.ReorgWindow, chainAdapter, bus)
	if err := tracker.LoadWindow(db.RecentBlocks()); err != nil {
		fatalf("confirmation window load failed: %v", err)
	}
	watcher := chainclient.NewWatcher(chainClient, tracker, isTracked, cfg.ChainPollInterval, 0)
	watcher.SetFatalHandler(func(err error) {
		log.Logger.Error().Err(err).Msg("fatal chain-watch condition, halting node")
		stop()
	})
	go watcher.Run(ctx)

	attacher := attach.New(db, bus, cfg.MaxConfirmationTime)

	checkDeps := check.Dependencies{
		Chroma:             chromaStore,
		Frozen:             frozenStore,
		RangeProofVerifier: bulletproof.StructuralVerifier{},
	}

	ctrl := controller.New(controller.Deps{
		Bus:         bus,
		Mempool:     mempoolStore,
		CheckDeps:   checkDeps,
		Attacher:    attacher,
		Tracker:     tracker,
		AttachedTxs: db.AttachedTxs(),
		Frozen:      frozenStore,
		Pages:       pageIndex,
		PoolSize:    cfg.PoolSize,
	})
	ctrl.Start(ctx)
	defer ctrl.Stop()

	srv := rpcserver.New(cfg.ListenAddr, ctrl)
	if err := srv.Start(); err != nil {
		fatalf("rpc server start failed: %v", err)
	}
	defer srv.Stop()

	log.Logger.Info().Str("listen", srv.Addr()).Str("datadir", cfg.DataDir).Msg("yuvd started")
	<-ctx.Done()
	log.Logger.Info().Msg("yuvd shutting down")
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "yuvd: "+format+"\n", args...)
	os.Exit(1)
}
