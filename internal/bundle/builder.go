package bundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/dtag"
	"github.com/roach88/relaysync/internal/eventstate"
	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/wire"
)

// Source is the read side of the revision store a Builder draws from.
type Source interface {
	ingest.Lister
	Current(ctx context.Context, key eventstate.Key) (*ingest.Revision, error)
}

var (
	// ErrInvalidSelector is returned when a Selector names no farm.
	ErrInvalidSelector = errors.New("invalid bundle selector")

	// ErrFarmNotFound is returned when the selected farm has no stored
	// revision.
	ErrFarmNotFound = errors.New("farm not found")
)

// Selector names the farm a bundle is built for.
type Selector struct {
	Author   string
	FarmDTag string
}

// Ref returns the farm reference the selector names.
func (s Selector) Ref() codec.FarmRef {
	return codec.FarmRef{Pubkey: s.Author, DTag: s.FarmDTag}
}

func (s Selector) validate() error {
	if strings.TrimSpace(s.Author) == "" {
		return fmt.Errorf("%w: empty author", ErrInvalidSelector)
	}
	if err := dtag.Validate(s.FarmDTag); err != nil {
		return fmt.Errorf("%w: farm d tag: %v", ErrInvalidSelector, err)
	}
	return nil
}

// Options controls which optional sections a bundle carries. The farm and
// its plots are always included.
type Options struct {
	IncludeProfiles bool `json:"include_profiles" yaml:"include_profiles"`
	IncludeListSets bool `json:"include_list_sets" yaml:"include_list_sets"`
}

// Builder assembles bundles from stored revisions.
type Builder struct {
	src    Source
	clock  func() time.Time
	logger *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithClock sets the clock used to stamp drafts.
func WithClock(clock func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.clock = clock
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder returns a Builder reading from src.
func NewBuilder(src Source, opts ...BuilderOption) *Builder {
	b := &Builder{
		src:    src,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build assembles the bundle for sel. Events are ordered profiles, farm,
// plots, list sets. Every draft is re-encoded through the codec and stamped
// with the same creation time.
func (b *Builder) Build(ctx context.Context, sel Selector, opts Options) (SyncBundle, error) {
	if err := sel.validate(); err != nil {
		return SyncBundle{}, err
	}
	ref := sel.Ref()
	createdAt := uint32(checkpoint.FromTime(b.clock()))

	farmRev, err := b.src.Current(ctx, eventstate.NewKey(codec.KindFarm, sel.Author, sel.FarmDTag))
	if err != nil {
		return SyncBundle{}, fmt.Errorf("load farm %s: %w", ref.Address(), err)
	}
	if farmRev == nil {
		return SyncBundle{}, fmt.Errorf("%w: %s", ErrFarmNotFound, ref.Address())
	}
	farm, err := redraft(*farmRev, createdAt)
	if err != nil {
		return SyncBundle{}, err
	}

	plots, err := b.plots(ctx, ref, createdAt)
	if err != nil {
		return SyncBundle{}, err
	}

	// Members are read from list sets even when the sets themselves are
	// not shipped.
	var sets []wire.EventDraft
	var members []string
	if opts.IncludeProfiles || opts.IncludeListSets {
		sets, members, err = b.listSets(ctx, ref, createdAt)
		if err != nil {
			return SyncBundle{}, err
		}
	}

	var events []wire.EventDraft
	if opts.IncludeProfiles {
		profiles, err := b.profiles(ctx, append([]string{sel.Author}, members...), createdAt)
		if err != nil {
			return SyncBundle{}, err
		}
		events = append(events, profiles...)
	}
	events = append(events, farm)
	events = append(events, plots...)
	if opts.IncludeListSets {
		events = append(events, sets...)
	}

	b.logger.Debug("bundle built",
		"farm", ref.Address(),
		"events", len(events),
		"plots", len(plots),
	)
	return SyncBundle{Version: Version, Events: events}, nil
}

func (b *Builder) plots(ctx context.Context, ref codec.FarmRef, createdAt uint32) ([]wire.EventDraft, error) {
	revs, err := b.src.Revisions(ctx, ingest.RevisionFilter{
		Kinds:   []uint32{codec.KindPlot},
		Authors: []string{ref.Pubkey},
	})
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}

	var out []wire.EventDraft
	for _, rev := range revs {
		rec, err := codec.DecodeParts(rev.Parts())
		if err != nil {
			b.logger.Warn("skipping undecodable plot", "key", rev.Key().String(), "error", err)
			continue
		}
		plot, ok := rec.(codec.Plot)
		if !ok || plot.Farm != ref {
			continue
		}
		d, err := draft(rec, rev.Author, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// listSets returns the author's list sets that reference the farm, and the
// members ("p" entries) they name.
func (b *Builder) listSets(ctx context.Context, ref codec.FarmRef, createdAt uint32) ([]wire.EventDraft, []string, error) {
	revs, err := b.src.Revisions(ctx, ingest.RevisionFilter{
		Kinds:   codec.ListSetKinds(),
		Authors: []string{ref.Pubkey},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list sets: %w", err)
	}

	addr := ref.Address()
	var out []wire.EventDraft
	var members []string
	for _, rev := range revs {
		rec, err := codec.DecodeParts(rev.Parts())
		if err != nil {
			b.logger.Warn("skipping undecodable list set", "key", rev.Key().String(), "error", err)
			continue
		}
		set, ok := rec.(codec.ListSet)
		if !ok || !slices.Contains(set.EntryValues("a"), addr) {
			continue
		}
		d, err := draft(rec, rev.Author, createdAt)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, d)
		members = append(members, set.EntryValues("p")...)
	}
	return out, members, nil
}

// profiles loads the profile of each distinct pubkey in ascending order.
// Pubkeys without a stored profile are skipped.
func (b *Builder) profiles(ctx context.Context, pubkeys []string, createdAt uint32) ([]wire.EventDraft, error) {
	keys := make([]string, 0, len(pubkeys))
	for _, pk := range pubkeys {
		if pk = strings.TrimSpace(pk); pk != "" {
			keys = append(keys, pk)
		}
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	var out []wire.EventDraft
	for _, pk := range keys {
		rev, err := b.src.Current(ctx, eventstate.NewKey(codec.KindProfile, pk, ""))
		if err != nil {
			return nil, fmt.Errorf("load profile %s: %w", pk, err)
		}
		if rev == nil {
			b.logger.Debug("no profile for member", "author", pk)
			continue
		}
		d, err := redraft(*rev, createdAt)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// redraft decodes a stored revision and encodes it again as a fresh draft.
func redraft(rev ingest.Revision, createdAt uint32) (wire.EventDraft, error) {
	rec, err := codec.DecodeParts(rev.Parts())
	if err != nil {
		return wire.EventDraft{}, fmt.Errorf("decode %s: %w", rev.Key(), err)
	}
	return draft(rec, rev.Author, createdAt)
}

func draft(rec codec.Record, author string, createdAt uint32) (wire.EventDraft, error) {
	parts, err := codec.Encode(rec)
	if err != nil {
		return wire.EventDraft{}, fmt.Errorf("encode %s: %w", codec.RecordType(rec), err)
	}
	return parts.Draft(author, createdAt), nil
}
