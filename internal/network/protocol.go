package network

import (
	"encoding/json"
	"time"

	"github.com/gravitas-games/sekaiscout/pkg/models"
)

// Message types - Client → Server
const (
	MsgTypeSubscribe = "subscribe"
	MsgTypeSetFilter = "set_filter"
	MsgTypePing      = "ping"
)

// Message types - Server → Client
const (
	MsgTypeStatus    = "status"
	MsgTypeResources = "resources"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// Error codes
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeUnknownType    = "unknown_message_type"
	ErrCodeForbidden      = "forbidden"
	ErrCodeInvalidFilter  = "invalid_filter"
	ErrCodeNotSubscribed  = "not_subscribed"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// SubscribePayload selects the account whose updates the client receives.
// A new subscribe replaces the previous one.
type SubscribePayload struct {
	AccountID string `json:"account_id"`
}

// FilterPayload selects the resource shown in the resources view
type FilterPayload struct {
	ResourceType string `json:"resource_type"`
	ResourceID   int    `json:"resource_id"`
}

// --- Server Message Payloads ---

// StatusPayload is the latest match list of an account. Waiting is true
// until the first capture for the account arrives.
type StatusPayload struct {
	AccountID  string      `json:"account_id"`
	Waiting    bool        `json:"waiting"`
	UpdatedAt  *time.Time  `json:"updated_at,omitempty"`
	MatchCount int         `json:"match_count"`
	Matches    []MatchView `json:"matches"`
}

// MatchView is one match labelled with its place and resource names.
type MatchView struct {
	SiteID       int         `json:"site_id"`
	PlaceName    string      `json:"place_name"`
	ResourceName string      `json:"resource_name"`
	PositionX    int         `json:"position_x"`
	PositionZ    int         `json:"position_z"`
	Quantity     int         `json:"quantity"`
	Drop         models.Drop `json:"drop"`
}

// ResourcesPayload is the extraction of the current filter over the
// account's stored harvest map.
type ResourcesPayload struct {
	AccountID    string                 `json:"account_id"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   int                    `json:"resource_id"`
	ResourceName string                 `json:"resource_name"`
	Waiting      bool                   `json:"waiting"`
	UpdatedAt    *time.Time             `json:"updated_at,omitempty"`
	Places       []models.ResourcePlace `json:"places"`
}

// PongPayload answers a ping
type PongPayload struct {
	Timestamp int64 `json:"timestamp"` // Unix timestamp
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
