package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/wire"
)

// marshalTags converts tags to JSON TEXT for storage. Strings are stored
// as given so a read returns exactly the revision that was written.
func marshalTags(tags wire.Tags) (string, error) {
	if tags == nil {
		tags = wire.Tags{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

// unmarshalTags parses stored tags. An empty array reads back as nil.
func unmarshalTags(data string) (wire.Tags, error) {
	var tags wire.Tags
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

// marshalRevision and unmarshalRevision serve the Redis backend, which
// stores whole revisions as JSON values.
func marshalRevision(r ingest.Revision) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal revision %s: %w", r.EventID, err)
	}
	return string(data), nil
}

func unmarshalRevision(data string) (ingest.Revision, error) {
	var r ingest.Revision
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return ingest.Revision{}, fmt.Errorf("unmarshal revision: %w", err)
	}
	if len(r.Tags) == 0 {
		r.Tags = nil
	}
	return r, nil
}
