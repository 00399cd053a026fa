package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Replay is a recorded game: one snapshot per broadcast state, in order.
type Replay struct {
	GameID string
	States []*Snapshot

	mu      sync.RWMutex
	current int
}

func NewReplay(gameID string) *Replay {
	return &Replay{GameID: gameID}
}

// RecordState appends a snapshot.
func (r *Replay) RecordState(snap *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, snap)
}

// Start rewinds playback to the beginning.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = 0
}

// Next returns the next snapshot, or nil at the end.
func (r *Replay) Next() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current >= len(r.States) {
		return nil
	}
	snap := r.States[r.current]
	r.current++
	return snap
}

// Previous steps playback back one snapshot, or nil at the beginning.
func (r *Replay) Previous() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == 0 {
		return nil
	}
	r.current--
	return r.States[r.current]
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.States)
}

// StateAt returns the snapshot at index, or nil out of range.
func (r *Replay) StateAt(index int) *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.States) {
		return nil
	}
	return r.States[index]
}

type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	StateCount int
}

const replayVersion = 1

// SaveToFile writes the replay as gob inside gzip, one file per game.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create replay file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	defer zw.Close()

	enc := gob.NewEncoder(zw)
	meta := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := enc.Encode(&meta); err != nil {
		return fmt.Errorf("encode replay metadata: %w", err)
	}
	for i, snap := range r.States {
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot %d: %w", i, err)
		}
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var meta replayMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode replay metadata: %w", err)
	}
	if meta.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version %d", meta.Version)
	}

	replay := NewReplay(meta.GameID)
	for i := 0; i < meta.StateCount; i++ {
		var snap Snapshot
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("decode snapshot %d: %w", i, err)
		}
		replay.States = append(replay.States, &snap)
	}
	return replay, nil
}

// Recorder accumulates snapshots for one game and writes the replay file
// when the table closes.
type Recorder struct {
	replay *Replay
	dir    string
	log    *zap.Logger
}

func NewRecorder(gameID, dir string, logger *zap.Logger) *Recorder {
	return &Recorder{replay: NewReplay(gameID), dir: dir, log: logger}
}

// RecordState runs on the table goroutine.
func (rec *Recorder) RecordState(snap *Snapshot) {
	rec.replay.RecordState(snap)
}

// Replay returns the recording so far.
func (rec *Recorder) Replay() *Replay {
	return rec.replay
}

// Flush writes the replay file. Empty recordings are skipped.
func (rec *Recorder) Flush() error {
	if rec.replay.Size() == 0 {
		return nil
	}
	if err := rec.replay.SaveToFile(rec.dir); err != nil {
		return err
	}
	rec.log.Info("replay saved",
		zap.String("game_id", rec.replay.GameID),
		zap.Int("states", rec.replay.Size()),
	)
	return nil
}
