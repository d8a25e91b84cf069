package models

import "time"

// AccountStatus is the latest extraction result recorded for one game account.
type AccountStatus struct {
	AccountID string         `json:"account_id"`
	UpdatedAt time.Time      `json:"updated_at"`
	Matches   []DiamondPlace `json:"matches"`
}

// HasMatches reports whether the last capture found any drop of interest.
func (s *AccountStatus) HasMatches() bool {
	return len(s.Matches) > 0
}

// AccountSummary is the row shown in the account list of the dashboard.
type AccountSummary struct {
	AccountID        string    `json:"account_id"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
	MatchCount       int       `json:"match_count"`
	HarvestUpdatedAt time.Time `json:"harvest_updated_at,omitempty"`
	SiteCount        int       `json:"site_count"`
}
