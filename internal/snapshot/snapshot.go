// Package snapshot persists whole-catalog snapshots for dump and restore.
//
// Every backend stores the same JSON blob:
//
//	{"version":1,"created_at":"...","entries":[{"product":{...},"reviews":[...]}]}
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ShopCatalog/internal/catalog"
)

const Version = 1

var ErrMalformed = errors.New("malformed snapshot")

type blob struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []catalog.Entry `json:"entries"`
}

func Encode(entries []catalog.Entry, createdAt time.Time) ([]byte, error) {
	if entries == nil {
		entries = []catalog.Entry{}
	}
	return json.Marshal(blob{Version: Version, CreatedAt: createdAt.UTC(), Entries: entries})
}

// Decode validates and unpacks a blob. Review lists are never nil.
func Decode(data []byte) ([]catalog.Entry, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, b.Version)
	}

	seen := make(map[int]struct{}, len(b.Entries))
	for i := range b.Entries {
		id := b.Entries[i].Product.ID()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate product %d", ErrMalformed, id)
		}
		seen[id] = struct{}{}
		if b.Entries[i].Reviews == nil {
			b.Entries[i].Reviews = []catalog.Review{}
		}
	}
	if b.Entries == nil {
		b.Entries = []catalog.Entry{}
	}
	return b.Entries, nil
}
