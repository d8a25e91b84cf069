package models

// Drop is one resource drop record inside a harvest site.
type Drop struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int    `json:"resource_id"`
	PositionX    int    `json:"position_x"`
	PositionZ    int    `json:"position_z"`
	Quantity     int    `json:"quantity"`
	Status       string `json:"status,omitempty"`

	// SpawnLimitGroup is set only for time-limited spawns.
	SpawnLimitGroup *int `json:"spawn_limit_group,omitempty"`

	// Raw is the record exactly as decoded from the snapshot.
	Raw map[string]any `json:"raw,omitempty"`

	// Partial marks a record that carried a resource id but lacked its
	// type, position or quantity. Such drops are matched by id but never
	// aggregated.
	Partial bool `json:"partial,omitempty"`
}

// SamePosition reports whether the drop sits at (x, z).
func (d Drop) SamePosition(x, z int) bool {
	return d.PositionX == x && d.PositionZ == z
}

// Fixture is a placed object occupying a position in a harvest site.
type Fixture struct {
	FixtureID int `json:"fixture_id"`
	PositionX int `json:"position_x"`
	PositionZ int `json:"position_z"`
}

// Site is one harvest location with its drops and fixtures, in snapshot order.
type Site struct {
	SiteID   int       `json:"site_id"`
	Drops    []Drop    `json:"drops"`
	Fixtures []Fixture `json:"fixtures"`

	// DropEntries is the length of the drop list as received, counting
	// entries that could not be decoded.
	DropEntries int `json:"drop_entries"`
}

// DiamondPlace pairs a raw drop with the site it was reported in.
type DiamondPlace struct {
	SiteID int  `json:"site_id"`
	Drop   Drop `json:"drop"`
}

// OtherItem is a co-located drop of a different resource than the one searched for.
type OtherItem struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int    `json:"resource_id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
}

// ResourcePlace is the aggregated view of every drop sharing one
// (site, type, id, x, z, spawn limit group) identity.
type ResourcePlace struct {
	SiteID          int            `json:"site_id"`
	ResourceType    string         `json:"resource_type"`
	ResourceID      int            `json:"resource_id"`
	ResourceName    string         `json:"resource_name"`
	PlaceName       string         `json:"place_name"`
	PositionX       int            `json:"position_x"`
	PositionZ       int            `json:"position_z"`
	Quantity        int            `json:"quantity"`
	SpawnLimitGroup *int           `json:"spawn_limit_group,omitempty"`
	FixtureName     string         `json:"fixture_name"`
	FixtureAllItems []OtherItem    `json:"fixture_all_items"`
	RawData         []DiamondPlace `json:"raw_data"`
}

// SiteSummary is the lightweight per-site drop count used for logging.
type SiteSummary struct {
	SiteID    int `json:"site_id"`
	DropCount int `json:"drop_count"`
}
