// Package store keeps the latest extraction result per game account.
//
// The account table is copy-on-write: every record builds a new table and
// swaps it in, so readers never take a lock and never see a half-updated
// account. The relay consumer is the only writer in practice; writes are
// still serialized so tests and restores can write concurrently.
package store

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/internal/notify"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// Publisher receives one event per record operation.
type Publisher interface {
	Publish(notify.Event)
}

// account is never modified once stored.
type account struct {
	status           *models.AccountStatus
	harvestMap       gamemap.HarvestMap
	harvestUpdatedAt time.Time
	hasHarvestMap    bool
}

type table map[string]*account

// Store is the per-account aggregation store.
type Store struct {
	writeMu   sync.Mutex
	accounts  atomic.Pointer[table]
	publisher Publisher
	now       func() time.Time
}

// New creates an empty store. publisher may be nil.
func New(publisher Publisher) *Store {
	s := &Store{
		publisher: publisher,
		now:       time.Now,
	}
	empty := table{}
	s.accounts.Store(&empty)
	return s
}

// RecordMatches replaces the account's status with matches stamped now.
func (s *Store) RecordMatches(accountID string, matches []models.DiamondPlace) {
	now := s.now()
	s.update(accountID, func(a *account) {
		a.status = &models.AccountStatus{
			AccountID: accountID,
			UpdatedAt: now,
			Matches:   append([]models.DiamondPlace{}, matches...),
		}
	})
	s.publish(accountID, notify.KindMatches, now)
}

// RecordHarvestMap replaces the account's harvest map.
func (s *Store) RecordHarvestMap(accountID string, hm gamemap.HarvestMap) {
	now := s.now()
	s.update(accountID, func(a *account) {
		a.harvestMap = append(gamemap.HarvestMap{}, hm...)
		a.harvestUpdatedAt = now
		a.hasHarvestMap = true
	})
	s.publish(accountID, notify.KindHarvestMap, now)
}

// Restore seeds an account from persisted history without notifying.
func (s *Store) Restore(accountID string, capturedAt time.Time, matches []models.DiamondPlace, hm gamemap.HarvestMap) {
	s.update(accountID, func(a *account) {
		a.status = &models.AccountStatus{
			AccountID: accountID,
			UpdatedAt: capturedAt,
			Matches:   append([]models.DiamondPlace{}, matches...),
		}
		a.harvestMap = append(gamemap.HarvestMap{}, hm...)
		a.harvestUpdatedAt = capturedAt
		a.hasHarvestMap = true
	})
}

func (s *Store) update(accountID string, mutate func(*account)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := *s.accounts.Load()
	next := make(table, len(current)+1)
	for id, a := range current {
		next[id] = a
	}

	var a account
	if prev, ok := current[accountID]; ok {
		a = *prev
	}
	mutate(&a)
	next[accountID] = &a
	s.accounts.Store(&next)
}

func (s *Store) publish(accountID string, kind notify.Kind, at time.Time) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(notify.Event{AccountID: accountID, Kind: kind, Timestamp: at})
}

// Status returns the last recorded status of accountID.
func (s *Store) Status(accountID string) (models.AccountStatus, bool) {
	a, ok := (*s.accounts.Load())[accountID]
	if !ok || a.status == nil {
		return models.AccountStatus{}, false
	}
	return *a.status, true
}

// HarvestMap returns the last recorded harvest map of accountID.
func (s *Store) HarvestMap(accountID string) (gamemap.HarvestMap, bool) {
	a, ok := (*s.accounts.Load())[accountID]
	if !ok || !a.hasHarvestMap {
		return nil, false
	}
	return a.harvestMap, true
}

// Accounts lists every known account ordered by id.
func (s *Store) Accounts() []models.AccountSummary {
	current := *s.accounts.Load()
	out := make([]models.AccountSummary, 0, len(current))
	for id, a := range current {
		summary := models.AccountSummary{
			AccountID:        id,
			HarvestUpdatedAt: a.harvestUpdatedAt,
			SiteCount:        len(a.harvestMap),
		}
		if a.status != nil {
			summary.UpdatedAt = a.status.UpdatedAt
			summary.MatchCount = len(a.status.Matches)
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}
