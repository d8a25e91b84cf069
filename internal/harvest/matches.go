package harvest

import (
	"sort"

	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// FindMatches returns every drop of resourceID in snap, whatever its type,
// partial records included.
// ok is false when the snapshot has no harvest maps at all; a relevant
// snapshot without matches returns an empty, non-nil slice.
func FindMatches(snap gamemap.Snapshot, resourceID int) (matches []models.DiamondPlace, ok bool) {
	hm, ok := snap.HarvestMap()
	if !ok {
		return nil, false
	}
	return MatchesIn(hm, resourceID), true
}

// MatchesIn is FindMatches over a decoded harvest map.
func MatchesIn(hm gamemap.HarvestMap, resourceID int) []models.DiamondPlace {
	matches := []models.DiamondPlace{}
	for _, site := range hm {
		for _, drop := range site.Drops {
			if drop.ResourceID == resourceID {
				matches = append(matches, models.DiamondPlace{SiteID: site.SiteID, Drop: drop})
			}
		}
	}
	return matches
}

// Summary returns the drop count of each site as received, or ok=false when
// snap has no harvest maps.
func Summary(snap gamemap.Snapshot) (summary []models.SiteSummary, ok bool) {
	hm, ok := snap.HarvestMap()
	if !ok {
		return nil, false
	}
	summary = make([]models.SiteSummary, 0, len(hm))
	for _, site := range hm {
		summary = append(summary, models.SiteSummary{SiteID: site.SiteID, DropCount: site.DropEntries})
	}
	return summary, true
}

// DistinctIDs buckets the resource ids of every drop by category. All four
// categories are present in the result; unrecognized types are ignored.
func DistinctIDs(snap gamemap.Snapshot) map[catalog.Category][]int {
	hm, _ := snap.HarvestMap()
	return DistinctIDsIn(hm)
}

// DistinctIDsIn is DistinctIDs over a decoded harvest map. Ids are sorted.
func DistinctIDsIn(hm gamemap.HarvestMap) map[catalog.Category][]int {
	sets := make(map[catalog.Category]map[int]struct{}, len(catalog.Categories))
	for _, cat := range catalog.Categories {
		sets[cat] = make(map[int]struct{})
	}
	for _, site := range hm {
		for _, drop := range site.Drops {
			cat, ok := catalog.ParseCategory(drop.ResourceType)
			if !ok {
				continue
			}
			sets[cat][drop.ResourceID] = struct{}{}
		}
	}

	out := make(map[catalog.Category][]int, len(sets))
	for cat, set := range sets {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out[cat] = ids
	}
	return out
}
