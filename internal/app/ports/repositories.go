package ports

import (
	"context"
	"time"
)

const (
	SessionKeyToken = "token"
	SessionKeyUser  = "user"
)

// KeyValueStore is the local storage behind the token/user cache.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetAll(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type DriftRecord struct {
	At        time.Time `json:"at"`
	Source    string    `json:"source"`
	Predicted float64   `json:"predicted_temp_coins"`
	Server    float64   `json:"server_temp_coins"`
	Drift     float64   `json:"drift"`
	IsMining  bool      `json:"is_mining"`
	HadLocal  bool      `json:"had_local"`
}

type DriftJournal interface {
	Record(rec DriftRecord) error
}
