package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gridstead/internal/persistence/indexdb"
	persistlog "gridstead/internal/persistence/log"
	"gridstead/internal/persistence/snapshot"
	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/tuning"
	"gridstead/internal/sim/world"
	"gridstead/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		schemaDir  = flag.String("schemas", "./schemas", "json schema directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index (tick + catalog + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir, *schemaDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	// Load tuning (required for fresh world; optional for snapshot resumes,
	// which carry the effective values).
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	// Optional: read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index db: upsert catalogs: %v", err)
		}
	}

	// Create world (fresh or resumed from snapshot).
	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}
		w, err = world.New(world.Config{
			ID:                 *worldID,
			Seed:               snap.Seed,
			Width:              snap.Width,
			Height:             snap.Height,
			TickRateHz:         snap.TickRate,
			SnapshotEveryTicks: snap.SnapshotEveryTicks,
			Storage: tuning.StorageDefaults{
				DefaultInputCapacity:  snap.DefaultInputCapacity,
				DefaultOutputCapacity: snap.DefaultOutputCapacity,
			},
		}, cats)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		w, err = world.New(world.Config{
			ID:                 *worldID,
			Seed:               *seed,
			Width:              tune.WorldWidth,
			Height:             tune.WorldHeight,
			TickRateHz:         tune.TickRateHz,
			SnapshotEveryTicks: tune.SnapshotEveryTicks,
			Storage:            tune.Storage,
		}, cats)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP gridstead_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE gridstead_world_tick gauge\n")
		fmt.Fprintf(rw, "gridstead_world_tick{world=%q} %d\n", *worldID, tick)

		fmt.Fprintf(rw, "# HELP gridstead_world_structures Current number of placed structures.\n")
		fmt.Fprintf(rw, "# TYPE gridstead_world_structures gauge\n")
		fmt.Fprintf(rw, "gridstead_world_structures{world=%q} %d\n", *worldID, m.Structures)

		fmt.Fprintf(rw, "# HELP gridstead_world_operational Current number of operational structures.\n")
		fmt.Fprintf(rw, "# TYPE gridstead_world_operational gauge\n")
		fmt.Fprintf(rw, "gridstead_world_operational{world=%q} %d\n", *worldID, m.Operational)

		fmt.Fprintf(rw, "# HELP gridstead_world_clients Current number of connected clients.\n")
		fmt.Fprintf(rw, "# TYPE gridstead_world_clients gauge\n")
		fmt.Fprintf(rw, "gridstead_world_clients{world=%q} %d\n", *worldID, m.Clients)

		fmt.Fprintf(rw, "# HELP gridstead_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE gridstead_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "gridstead_world_queue_depth{world=%q,queue=%q} %d\n", *worldID, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "gridstead_world_queue_depth{world=%q,queue=%q} %d\n", *worldID, "join", m.QueueDepths.Join)
		fmt.Fprintf(rw, "gridstead_world_queue_depth{world=%q,queue=%q} %d\n", *worldID, "leave", m.QueueDepths.Leave)

		fmt.Fprintf(rw, "# HELP gridstead_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE gridstead_world_step_ms gauge\n")
		fmt.Fprintf(rw, "gridstead_world_step_ms{world=%q} %.3f\n", *worldID, m.StepMS)
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

type multiTickLogger struct {
	a world.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}
