package server

import (
	"sync"
	"time"
)

// Session tracks the dashboard viewers connected to this process and the
// account each one is watching.
type Session struct {
	StartedAt time.Time

	mu      sync.RWMutex
	viewers map[*Connection]string // connection -> watched account, "" before subscribe
}

// SessionStatus represents the current state of the dashboard
type SessionStatus struct {
	Status   string         `json:"status"`
	Relay    string         `json:"relay,omitempty"`
	Viewers  int            `json:"viewers"`
	Watching map[string]int `json:"watching"` // account -> viewer count
	Accounts int            `json:"accounts"`
	Uptime   int64          `json:"uptime"` // seconds
}

func NewSession() *Session {
	return &Session{
		StartedAt: time.Now(),
		viewers:   make(map[*Connection]string),
	}
}

// Join registers a connection that is not watching anything yet.
func (s *Session) Join(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewers[c] = ""
}

// Watch records that c now watches accountID.
func (s *Session) Watch(c *Connection, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.viewers[c]; ok {
		s.viewers[c] = accountID
	}
}

// Leave removes c.
func (s *Session) Leave(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.viewers, c)
}

// Connections returns every registered connection.
func (s *Session) Connections() []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Connection, 0, len(s.viewers))
	for c := range s.viewers {
		out = append(out, c)
	}
	return out
}

// Status returns viewer counts and uptime. The caller fills Relay and Accounts.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	watching := make(map[string]int)
	for _, account := range s.viewers {
		if account != "" {
			watching[account]++
		}
	}
	return SessionStatus{
		Status:   "ok",
		Viewers:  len(s.viewers),
		Watching: watching,
		Uptime:   int64(time.Since(s.StartedAt).Seconds()),
	}
}
