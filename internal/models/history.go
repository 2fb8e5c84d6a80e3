package models

import (
	"encoding/json"
	"time"
)

// HistoryEntry is one logged weather lookup. The snapshot is kept opaque:
// it is whatever the gateway returned for the query, stored verbatim.
type HistoryEntry struct {
	ID      string          `json:"id"`
	UserID  string          `json:"userId"`
	City    string          `json:"city"`
	Weather json.RawMessage `json:"weather"`
	Date    time.Time       `json:"date"`
}
