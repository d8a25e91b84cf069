package store

import (
	"sync"
	"testing"
	"time"

	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/internal/notify"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(e notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) snapshot() []notify.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notify.Event(nil), p.events...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func match(site, id int) models.DiamondPlace {
	return models.DiamondPlace{SiteID: site, Drop: models.Drop{ResourceType: "mysekai_material", ResourceID: id, Quantity: 1}}
}

func TestRecordMatchesReplacesWholesale(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = fixedClock(t0)

	s.RecordMatches("100", []models.DiamondPlace{match(5, 12), match(6, 12)})

	t1 := t0.Add(time.Minute)
	s.now = fixedClock(t1)
	s.RecordMatches("100", []models.DiamondPlace{match(7, 12)})

	status, ok := s.Status("100")
	if !ok {
		t.Fatal("expected status")
	}
	if !status.UpdatedAt.Equal(t1) {
		t.Fatalf("expected update time %v, got %v", t1, status.UpdatedAt)
	}
	if len(status.Matches) != 1 || status.Matches[0].SiteID != 7 {
		t.Fatalf("expected only the latest matches, got %+v", status.Matches)
	}

	events := pub.snapshot()
	if len(events) != 2 || events[1].AccountID != "100" || events[1].Kind != notify.KindMatches {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestRecordMatchesEmptyStillRecorded(t *testing.T) {
	s := New(nil)
	s.RecordMatches("100", []models.DiamondPlace{})

	status, ok := s.Status("100")
	if !ok {
		t.Fatal("checked-but-empty capture should still produce a status")
	}
	if status.HasMatches() {
		t.Fatalf("expected no matches, got %+v", status.Matches)
	}
}

func TestRecordMatchesCopiesInput(t *testing.T) {
	s := New(nil)
	in := []models.DiamondPlace{match(5, 12)}
	s.RecordMatches("1", in)
	in[0].SiteID = 99

	status, _ := s.Status("1")
	if status.Matches[0].SiteID != 5 {
		t.Fatal("stored matches must not alias the caller's slice")
	}
}

func TestHarvestMapIndependentOfStatus(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)

	if _, ok := s.HarvestMap("1"); ok {
		t.Fatal("unexpected harvest map for unknown account")
	}
	if _, ok := s.Status("1"); ok {
		t.Fatal("unexpected status for unknown account")
	}

	hm := gamemap.HarvestMap{{SiteID: 5}}
	s.RecordHarvestMap("1", hm)
	got, ok := s.HarvestMap("1")
	if !ok || len(got) != 1 || got[0].SiteID != 5 {
		t.Fatalf("unexpected harvest map %+v", got)
	}
	if _, ok := s.Status("1"); ok {
		t.Fatal("recording a harvest map must not invent a status")
	}

	s.RecordMatches("1", nil)
	if got, ok := s.HarvestMap("1"); !ok || len(got) != 1 {
		t.Fatal("recording matches must keep the harvest map")
	}

	events := pub.snapshot()
	if len(events) != 2 || events[0].Kind != notify.KindHarvestMap {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestAccountsAndRestore(t *testing.T) {
	pub := &recordingPublisher{}
	s := New(pub)
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	s.Restore("200", at, []models.DiamondPlace{match(5, 12)}, gamemap.HarvestMap{{SiteID: 5}, {SiteID: 6}})
	s.RecordHarvestMap("100", nil)

	accounts := s.Accounts()
	if len(accounts) != 2 || accounts[0].AccountID != "100" || accounts[1].AccountID != "200" {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
	if accounts[1].MatchCount != 1 || accounts[1].SiteCount != 2 || !accounts[1].UpdatedAt.Equal(at) {
		t.Fatalf("unexpected restored summary %+v", accounts[1])
	}
	if len(pub.snapshot()) != 1 {
		t.Fatalf("restore must not notify, got %+v", pub.snapshot())
	}
}

func TestConcurrentReadersSeeConsistentStatus(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if status, ok := s.Status("1"); ok {
					for _, m := range status.Matches {
						if m.SiteID != len(status.Matches) {
							t.Errorf("inconsistent status: %+v", status)
							return
						}
					}
				}
			}
		}()
	}

	for n := 1; n <= 200; n++ {
		matches := make([]models.DiamondPlace, n)
		for i := range matches {
			matches[i] = match(n, 12)
		}
		s.RecordMatches("1", matches)
	}
	close(stop)
	wg.Wait()
}
