package store

import (
	"io"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/ingest"
)

// Backend is the full storage surface used by the CLI and the syncer.
type Backend interface {
	ingest.Store
	ingest.Lister
	checkpoint.Store
	io.Closer
}

var (
	_ Backend = (*SQLite)(nil)
	_ Backend = (*Redis)(nil)
	_ Backend = (*Memory)(nil)
)
