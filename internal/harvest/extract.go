// Package harvest derives resource placements from decoded harvest maps.
//
// Every function here is a pure function of its input snapshot and the name
// catalog; nothing is retained between calls.
package harvest

import (
	"github.com/gravitas-games/sekaiscout/internal/catalog"
	"github.com/gravitas-games/sekaiscout/internal/gamemap"
	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// FixtureNotFound is the fixture name of a drop with no fixture at its position.
const FixtureNotFound = "Not found"

// Names resolves display names. *catalog.Catalog implements it.
type Names interface {
	Resource(resourceType string, id int) string
	Place(siteID int) string
	Fixture(fixtureID int) string
}

// Extractor builds ResourcePlace lists.
type Extractor struct {
	names Names
}

func NewExtractor(names Names) *Extractor {
	return &Extractor{names: names}
}

// placeKey is the composite identity of a ResourcePlace. hasLimit keeps a
// drop without a spawn-limit group apart from one in group 0.
type placeKey struct {
	site         int
	resourceType string
	resourceID   int
	x, z         int
	hasLimit     bool
	limit        int
}

func keyOf(siteID int, d models.Drop) placeKey {
	k := placeKey{
		site:         siteID,
		resourceType: d.ResourceType,
		resourceID:   d.ResourceID,
		x:            d.PositionX,
		z:            d.PositionZ,
	}
	if d.SpawnLimitGroup != nil {
		k.hasLimit = true
		k.limit = *d.SpawnLimitGroup
	}
	return k
}

// Extract returns the places of one resource in snap. A snapshot without a
// harvest-map collection yields an empty result.
func (e *Extractor) Extract(snap gamemap.Snapshot, category catalog.Category, resourceID int) []models.ResourcePlace {
	hm, ok := snap.HarvestMap()
	if !ok {
		return []models.ResourcePlace{}
	}
	return e.ExtractSites(hm, category, resourceID)
}

// ExtractSites is Extract over an already decoded harvest map. Results are
// in site order, then drop order of first appearance.
func (e *Extractor) ExtractSites(hm gamemap.HarvestMap, category catalog.Category, resourceID int) []models.ResourcePlace {
	resourceType := category.String()
	places := []models.ResourcePlace{}
	index := make(map[placeKey]int)

	for _, site := range hm {
		placeName := e.names.Place(site.SiteID)

		for _, drop := range site.Drops {
			if drop.Partial || drop.ResourceType != resourceType || drop.ResourceID != resourceID {
				continue
			}

			key := keyOf(site.SiteID, drop)
			if i, seen := index[key]; seen {
				places[i].Quantity += drop.Quantity
				places[i].RawData = append(places[i].RawData, models.DiamondPlace{SiteID: site.SiteID, Drop: drop})
				continue
			}

			index[key] = len(places)
			places = append(places, models.ResourcePlace{
				SiteID:          site.SiteID,
				ResourceType:    drop.ResourceType,
				ResourceID:      drop.ResourceID,
				ResourceName:    e.names.Resource(drop.ResourceType, drop.ResourceID),
				PlaceName:       placeName,
				PositionX:       drop.PositionX,
				PositionZ:       drop.PositionZ,
				Quantity:        drop.Quantity,
				SpawnLimitGroup: copyInt(drop.SpawnLimitGroup),
				FixtureName:     e.fixtureAt(site, drop.PositionX, drop.PositionZ),
				FixtureAllItems: e.otherItems(site, drop),
				RawData:         []models.DiamondPlace{{SiteID: site.SiteID, Drop: drop}},
			})
		}
	}
	return places
}

// fixtureAt names the first fixture at (x, z).
func (e *Extractor) fixtureAt(site models.Site, x, z int) string {
	for _, f := range site.Fixtures {
		if f.PositionX == x && f.PositionZ == z {
			return e.names.Fixture(f.FixtureID)
		}
	}
	return FixtureNotFound
}

// otherItems sums every drop at the primary drop's position whose resource
// differs from it, one entry per (type, id) in first-seen order.
func (e *Extractor) otherItems(site models.Site, primary models.Drop) []models.OtherItem {
	type itemKey struct {
		resourceType string
		resourceID   int
	}
	items := []models.OtherItem{}
	index := make(map[itemKey]int)

	for _, d := range site.Drops {
		if d.Partial || !d.SamePosition(primary.PositionX, primary.PositionZ) {
			continue
		}
		if d.ResourceType == primary.ResourceType && d.ResourceID == primary.ResourceID {
			continue
		}
		k := itemKey{d.ResourceType, d.ResourceID}
		if i, ok := index[k]; ok {
			items[i].Quantity += d.Quantity
			continue
		}
		index[k] = len(items)
		items = append(items, models.OtherItem{
			ResourceType: d.ResourceType,
			ResourceID:   d.ResourceID,
			Name:         e.names.Resource(d.ResourceType, d.ResourceID),
			Quantity:     d.Quantity,
		})
	}
	return items
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
