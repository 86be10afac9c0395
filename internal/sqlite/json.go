package sqlite

import "encoding/json"

// recordJSON is one line of a namespace JSONL file.
type recordJSON struct {
	ID        string          `json:"id"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}
