package domain

import "time"

// SourceStats holds per-source health counters. Only the hub writes them.
type SourceStats struct {
	Connected      bool
	Transport      Transport
	TokensReceived int64      // events that passed dedup and were delivered
	LastEvent      *time.Time // nil until the first delivery
	Errors         int64
	LastError      string
}

// Clone returns a copy that shares no memory with s.
func (s SourceStats) Clone() SourceStats {
	out := s
	if s.LastEvent != nil {
		t := *s.LastEvent
		out.LastEvent = &t
	}
	return out
}
