package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"debrisfield/sim"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "debrisfield.db", "SQLite database path (empty disables accounts and recording)")
	capacity := flag.Int("capacity", sim.DefaultCapacity, "object pool capacity")
	debris := flag.Int("debris", 120, "debris field target count")
	seed := flag.Int64("seed", 1, "simulation random seed")
	tick := flag.Int("tick", TickRate, "simulation ticks per second")
	resume := flag.Bool("resume", false, "restore the latest stored checkpoint")
	flag.Parse()

	var db *DB
	if *dbPath != "" {
		var err error
		db, err = OpenDB(*dbPath)
		if err != nil {
			log.Fatalf("open database %s: %v", *dbPath, err)
		}
		defer db.Close()
	}

	cfg := DefaultArenaConfig()
	cfg.Sim.Capacity = *capacity
	cfg.Sim.Seed = *seed
	cfg.Debris = *debris
	cfg.TickRate = *tick

	rec, err := NewRecorder(db, *seed, *capacity)
	if err != nil {
		log.Fatalf("start run: %v", err)
	}

	arena := NewArena(cfg, rec)
	if *resume && db != nil {
		if data, err := db.LatestCheckpoint(); err != nil {
			log.Printf("load checkpoint: %v", err)
		} else if data != nil {
			if err := arena.Restore(data); err != nil {
				log.Printf("restore checkpoint: %v", err)
			} else {
				log.Printf("restored checkpoint (%d bytes)", len(data))
			}
		}
	}
	go arena.Run()

	hub := NewHub(arena, db)
	go hub.Run()

	mux := SetupRoutes(hub)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s (run %d, capacity %d, seed %d)", *addr, rec.RunID(), *capacity, *seed)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	arena.Stop()
	if db != nil {
		frame := arena.Status().Stats.Frame
		if data, err := arena.Checkpoint(); err != nil {
			log.Printf("checkpoint: %v", err)
		} else if err := db.SaveCheckpoint(rec.RunID(), frame, data); err != nil {
			log.Printf("save checkpoint: %v", err)
		}
	}
	arena.Shutdown()
	rec.Stop()
}
