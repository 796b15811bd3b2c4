package main

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"debrisfield/sim"
)

// Event types written by the recorder
const (
	EvtDestroyed  = "destroyed"
	EvtCollected  = "collected"
	EvtVehicleHit = "vehicle_hit"
	EvtActorDown  = "actor_down"
	EvtCredit     = "credit"
)

const (
	recorderQueue     = 1024
	recorderBatch     = 50
	recorderFlushTick = 5 * time.Second
)

// Event is a single gameplay event of one run
type Event struct {
	Type      string
	Frame     uint64
	Kind      string
	Pos       sim.Vec2
	PilotID   int64
	Timestamp time.Time
}

// Recorder persists gameplay events with batched background writes and
// keeps the running totals of the current run
type Recorder struct {
	db     *DB
	runID  int64
	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.Mutex
	summary RunSummary
	dropped int
}

// NewRecorder opens a run row and starts the background writer.
// A nil db keeps totals in memory only.
func NewRecorder(db *DB, seed int64, capacity int) (*Recorder, error) {
	r := &Recorder{
		db:     db,
		events: make(chan Event, recorderQueue),
		stop:   make(chan struct{}),
	}
	if db != nil {
		id, err := db.StartRun(seed, capacity)
		if err != nil {
			return nil, err
		}
		r.runID = id
	}
	r.wg.Add(1)
	go r.writer()
	return r, nil
}

// RunID returns the ID of the run being recorded, 0 without a database
func (r *Recorder) RunID() int64 {
	return r.runID
}

// Track enqueues an event (non-blocking) and updates the run totals
func (r *Recorder) Track(evtType string, frame uint64, kind string, pos sim.Vec2, pilotID int64) {
	r.mu.Lock()
	r.summary.Frames = frame
	switch evtType {
	case EvtDestroyed:
		r.summary.Destroyed++
	case EvtCollected:
		r.summary.Collected++
	case EvtVehicleHit:
		r.summary.VehicleHits++
	}
	r.mu.Unlock()

	select {
	case r.events <- Event{
		Type:      evtType,
		Frame:     frame,
		Kind:      kind,
		Pos:       pos,
		PilotID:   pilotID,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// queue full, drop rather than stall the tick
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// SetFrame advances the frame total without an event
func (r *Recorder) SetFrame(frame uint64) {
	r.mu.Lock()
	r.summary.Frames = frame
	r.mu.Unlock()
}

// Summary returns the running totals
func (r *Recorder) Summary() RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Stop drains the queue, writes the run totals and stops the writer
func (r *Recorder) Stop() {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
		if r.db == nil {
			return
		}
		r.mu.Lock()
		s, dropped := r.summary, r.dropped
		r.mu.Unlock()
		if err := r.db.FinishRun(r.runID, s); err != nil {
			log.Printf("recorder: finish run %d: %v", r.runID, err)
		}
		if dropped > 0 {
			log.Printf("recorder: dropped %d events", dropped)
		}
	})
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]Event, 0, recorderBatch)
	ticker := time.NewTicker(recorderFlushTick)
	defer ticker.Stop()

	for {
		select {
		case evt := <-r.events:
			batch = append(batch, evt)
			if len(batch) >= recorderBatch {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			for {
				select {
				case evt := <-r.events:
					batch = append(batch, evt)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(events []Event) {
	if r.db == nil || len(events) == 0 {
		return
	}
	tx, err := r.db.conn.Begin()
	if err != nil {
		log.Printf("recorder: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (run_id, event_type, frame, kind, x, y, pilot_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("recorder: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullInt64{Int64: evt.PilotID, Valid: evt.PilotID > 0}
		_, err := stmt.Exec(r.runID, evt.Type, int64(evt.Frame), evt.Kind, evt.Pos[0], evt.Pos[1], pid, evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			log.Printf("recorder: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("recorder: commit error: %v", err)
	}
}

// EventCounts returns counts of each event type recorded for a run
func (db *DB) EventCounts(runID int64) (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT event_type, COUNT(*) FROM events
		WHERE run_id = ?
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
