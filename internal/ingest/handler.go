// Package ingest is the boundary between relayed payloads and the account
// store: it decodes, extracts and records, and never lets a failure escape.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/internal/harvest"
	"github.com/gravitas-games/sekaiscout/internal/journal"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

type Decoder interface {
	Decode(data []byte) (gamemap.Snapshot, error)
}

type Store interface {
	RecordMatches(accountID string, matches []models.DiamondPlace)
	RecordHarvestMap(accountID string, hm gamemap.HarvestMap)
}

type Recorder interface {
	Record(ctx context.Context, c journal.Capture) error
}

// CatalogChecker reports ids the name catalog cannot resolve.
type CatalogChecker interface {
	Missing(seen map[catalog.Category][]int) map[catalog.Category][]int
}

// Handler processes one payload at a time. Decoder and Store are required;
// the rest are optional.
type Handler struct {
	Decoder Decoder
	Store   Store
	// TargetID is the resource id reported as a match.
	TargetID int

	Dumper  *Dumper
	Journal Recorder
	Catalog CatalogChecker
	Logger  *log.Logger

	now func() time.Time
}

// HandlePayload implements relay.Handler.
func (h *Handler) HandlePayload(ctx context.Context, url string, data []byte) {
	logger := h.Logger
	if logger == nil {
		logger = log.Default()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("payload handler panicked", "url", url, "panic", fmt.Sprint(r))
		}
	}()

	accountID, ok := harvest.ExtractAccountID(url)
	if !ok {
		logger.Info("skipping payload without account id", "url", url)
		return
	}
	logger = logger.With("account", accountID)

	if h.Dumper != nil {
		if path, err := h.Dumper.Dump(data); err != nil {
			logger.Warn("failed to dump payload", "err", err)
		} else {
			logger.Debug("payload dumped", "path", path)
		}
	}

	snap, err := h.Decoder.Decode(data)
	if err != nil {
		logger.Error("failed to decode payload", "bytes", len(data), "err", err)
		return
	}

	hm, ok := snap.HarvestMap()
	if !ok {
		logger.Debug("payload has no harvest maps")
		return
	}
	summary, _ := harvest.Summary(snap)
	logger.Info("harvest summary", "sites", len(summary), "drops", hm.DropCount(), "per_site", summary)

	matches := harvest.MatchesIn(hm, h.TargetID)
	if len(matches) > 0 {
		logger.Info("target found", "resource_id", h.TargetID, "count", len(matches))
		for _, m := range matches {
			logger.Info("target drop", "site", m.SiteID, "x", m.Drop.PositionX, "z", m.Drop.PositionZ, "quantity", m.Drop.Quantity)
		}
	} else {
		logger.Info("target not found", "resource_id", h.TargetID)
	}

	h.Store.RecordMatches(accountID, matches)
	h.Store.RecordHarvestMap(accountID, hm)

	if h.Catalog != nil {
		for cat, ids := range h.Catalog.Missing(harvest.DistinctIDsIn(hm)) {
			logger.Warn("catalog has no names", "category", cat, "ids", ids)
		}
	}

	if h.Journal != nil {
		now := time.Now
		if h.now != nil {
			now = h.now
		}
		err := h.Journal.Record(ctx, journal.Capture{
			AccountID:  accountID,
			CapturedAt: now(),
			HarvestMap: hm,
			Matches:    matches,
		})
		if err != nil {
			logger.Error("failed to journal capture", "err", err)
		}
	}
}
