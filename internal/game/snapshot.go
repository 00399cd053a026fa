package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Snapshot is a full, self-contained copy of a game at one sequence point.
// It is what replays record and what state checksums are computed over.
type Snapshot struct {
	GameID         string
	Seq            uint64
	Phase          string
	TurnNumber     int
	Current        int
	LastDie1       int
	LastDie2       int
	DoublesCount   int
	FreeParkingPot int
	Players        []PlayerSnapshot
	Deeds          []DeedSnapshot
	Timestamp      time.Time
}

type PlayerSnapshot struct {
	ID         string
	Name       string
	Money      int
	Position   int
	InJail     bool
	JailTurns  int
	JailCards  int
	Bankrupt   bool
	Connected  bool
	Properties []string
}

type DeedSnapshot struct {
	ID        string
	OwnerID   string
	Houses    int
	Hotel     bool
	Mortgaged bool
}

// Snapshot copies the visible game state. Runs on the table goroutine.
func (s *GameState) Snapshot() *Snapshot {
	snap := &Snapshot{
		GameID:         s.ID,
		Seq:            s.Seq,
		Phase:          s.Phase.String(),
		TurnNumber:     s.TurnNumber,
		Current:        s.Current,
		LastDie1:       s.LastDie1,
		LastDie2:       s.LastDie2,
		DoublesCount:   s.DoublesCount,
		FreeParkingPot: s.FreeParkingPot,
		Players:        make([]PlayerSnapshot, 0, len(s.Players)),
		Deeds:          make([]DeedSnapshot, 0, len(s.Deeds)),
		Timestamp:      time.Now(),
	}
	for _, p := range s.Players {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:         p.ID,
			Name:       p.Name,
			Money:      p.Money,
			Position:   p.Position,
			InJail:     p.InJail,
			JailTurns:  p.JailTurns,
			JailCards:  p.JailCards,
			Bankrupt:   p.Bankrupt,
			Connected:  p.Connected,
			Properties: p.PropertyIDs(),
		})
	}
	ids := make([]string, 0, len(s.Deeds))
	for id := range s.Deeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		d := s.Deeds[id]
		snap.Deeds = append(snap.Deeds, DeedSnapshot{
			ID:        d.ID,
			OwnerID:   d.OwnerID,
			Houses:    d.Houses,
			Hotel:     d.Hotel,
			Mortgaged: d.Mortgaged,
		})
	}
	return snap
}

// Checksum returns a SHA-256 over a canonical rendering of the snapshot.
// Two snapshots of games that evolved identically hash identically; the
// timestamp is excluded.
func (snap *Snapshot) Checksum() string {
	sum := sha256.Sum256([]byte(snap.deterministicRepresentation()))
	return hex.EncodeToString(sum[:])
}

func (snap *Snapshot) deterministicRepresentation() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%s|%d|%d|%d|%d|%d|%d\n",
		snap.GameID, snap.Seq, snap.Phase, snap.TurnNumber, snap.Current,
		snap.LastDie1, snap.LastDie2, snap.DoublesCount, snap.FreeParkingPot,
	)

	players := make([]PlayerSnapshot, len(snap.Players))
	copy(players, snap.Players)
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	for _, p := range players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d|%t|%d|%d|%t|%t\n",
			p.ID, p.Name, p.Money, p.Position, p.InJail, p.JailTurns,
			p.JailCards, p.Bankrupt, p.Connected,
		)
		props := make([]string, len(p.Properties))
		copy(props, p.Properties)
		sort.Strings(props)
		for _, id := range props {
			fmt.Fprintf(&buf, "  OWNS:%s\n", id)
		}
	}

	deeds := make([]DeedSnapshot, len(snap.Deeds))
	copy(deeds, snap.Deeds)
	sort.Slice(deeds, func(i, j int) bool { return deeds[i].ID < deeds[j].ID })
	for _, d := range deeds {
		fmt.Fprintf(&buf, "DEED:%s|%s|%d|%t|%t\n",
			d.ID, d.OwnerID, d.Houses, d.Hotel, d.Mortgaged,
		)
	}

	return buf.String()
}
