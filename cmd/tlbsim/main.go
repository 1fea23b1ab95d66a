// Command tlbsim is a runnable demo harness: it wires the executor to a
// synthetic Upstream/Interpreter/Prover/Network and exposes the
// result over HTTP, exercising the full dependency stack end to end.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowmatic/tlb/pkg/config"
	"github.com/flowmatic/tlb/pkg/executor"
	"github.com/flowmatic/tlb/pkg/multipair"
	"github.com/flowmatic/tlb/pkg/storage"
	"github.com/flowmatic/tlb/pkg/types"
	"github.com/flowmatic/tlb/pkg/util"
)

func main() {
	cfg, err := config.LoadFromEnv("")
	if err != nil {
		panic(err)
	}

	zlog, err := util.NewLogger()
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	dataDir := os.Getenv("TLB_DATA_DIR")
	if dataDir == "" {
		dataDir = "data/tlbsim-index"
	}
	idxStore, err := storage.NewPebbleIndexStore(dataDir)
	if err != nil {
		sugar.Fatalw("index_store_open_failed", "err", err)
	}
	defer idxStore.Close()

	dispatcher := multipair.NewDispatcher(cfg.ExecutionCap, cfg.BacklogCapacity)
	pair := types.CanonicalPairId("ADA", "USDC")

	broadcast := make(chan executor.Tx, 64)
	hub := newTxHub()
	go hub.run()
	go hub.relay(toAnyChan(broadcast))

	upstream := newSyntheticUpstream(pair, 4)
	exec := executor.New(dispatcher, upstream, noopInterpreter{}, noopProver{}, &alwaysSucceedsNetwork{broadcast: broadcast}, util.RealClock{}, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(hub)
	addr := os.Getenv("TLBSIM_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		sugar.Infow("server_starting", "addr", addr)
		if err := srv.start(addr); err != nil {
			sugar.Errorw("server_stopped", "err", err)
		}
	}()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	sugar.Infow("tlbsim_starting", "pair", pair.String())
	for {
		select {
		case <-ctx.Done():
			sugar.Info("tlbsim_shutting_down")
			return
		case <-ticker.C:
			if err := exec.Poll(ctx); err != nil {
				sugar.Fatalw("executor_fatal_error", "err", err)
			}
		}
	}
}

func toAnyChan(in <-chan executor.Tx) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for v := range in {
			out <- v
		}
	}()
	return out
}

