package gamemap

import "github.com/gravitas-games/sekaiscout/pkg/models"

// Snapshot keys.
const (
	KeyUpdatedResources = "updatedResources"
	KeyHarvestMaps      = "userMysekaiHarvestMaps"

	keySiteID   = "mysekaiSiteId"
	keyDrops    = "userMysekaiSiteHarvestResourceDrops"
	keyFixtures = "userMysekaiSiteHarvestFixtures"

	keyResourceType = "resourceType"
	keyResourceID   = "resourceId"
	keyPositionX    = "positionX"
	keyPositionZ    = "positionZ"
	keyQuantity     = "quantity"
	keyDropStatus   = "mysekaiSiteHarvestResourceDropStatus"
	keySpawnLimit   = "mysekaiSiteHarvestSpawnLimitedRelationGroupId"
	keyFixtureID    = "mysekaiSiteHarvestFixtureId"
)

// Snapshot is one decoded game-state update.
type Snapshot map[string]any

// Root returns the level that may hold the harvest maps: the nested
// "updatedResources" mapping when present, otherwise the snapshot itself.
func (s Snapshot) Root() map[string]any {
	if nested, ok := asMap(s[KeyUpdatedResources]); ok {
		return nested
	}
	return s
}

// HarvestMap is the ordered list of harvest sites from one snapshot.
type HarvestMap []models.Site

// HarvestMap decodes the harvest-map collection. ok is false when the
// snapshot carries no such collection, which is the normal outcome for most
// updates.
func (s Snapshot) HarvestMap() (hm HarvestMap, ok bool) {
	raw, present := s.Root()[KeyHarvestMaps]
	if !present {
		return nil, false
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	hm = make(HarvestMap, 0, len(list))
	for _, entry := range list {
		fields, ok := asMap(entry)
		if !ok {
			continue
		}
		site, ok := decodeSite(fields)
		if !ok {
			continue
		}
		hm = append(hm, site)
	}
	return hm, true
}

// DropCount is the number of drops across all sites.
func (hm HarvestMap) DropCount() int {
	n := 0
	for _, site := range hm {
		n += len(site.Drops)
	}
	return n
}

// Site returns the site with the given id.
func (hm HarvestMap) Site(siteID int) (models.Site, bool) {
	for _, site := range hm {
		if site.SiteID == siteID {
			return site, true
		}
	}
	return models.Site{}, false
}
