package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relaysync/internal/bundle"
	"github.com/roach88/relaysync/internal/checkpoint"
	"github.com/roach88/relaysync/internal/codec"
	"github.com/roach88/relaysync/internal/testutil"
)

const reactionEnvelope = `{"type":"reaction","record":{"root":{"id":"root1","author":"auth1","kind":1},"content":"+"}}`

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestEncode_Golden(t *testing.T) {
	out, err := execute(t, reactionEnvelope, "--format", "json", "encode")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "encode_reaction", []byte(out))

	out, err = execute(t, reactionEnvelope, "encode", "--author", "farmer", "--created-at", "1700000000")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "encode_reaction_draft", []byte(out))
}

func TestEncode_DraftUsesClock(t *testing.T) {
	out, err := execute(t, reactionEnvelope, "encode", "--author", "farmer")
	require.NoError(t, err)
	assert.Contains(t, out, `"created_at":1700000000`)
}

func TestEncode_Errors(t *testing.T) {
	_, err := execute(t, `{"type":"order","record":{}}`, "encode")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := execute(t, `{"type":"reaction","record":{"content":"+"}}`, "--format", "json", "encode")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeCodec, resp.Error.Code)
	assert.Equal(t, map[string]interface{}{"code": "EMPTY_REQUIRED_FIELD", "field": "root.id"}, resp.Error.Details)
}

func TestDecode(t *testing.T) {
	parts := `{"kind":7,"content":"+","tags":[["  e_root ","root1","auth1","1",""],["e_root","root1","auth1","1",""]]}`
	out, err := execute(t, parts, "decode")
	require.NoError(t, err)
	assert.Equal(t, reactionEnvelope+"\n", out)
}

func TestDecode_Errors(t *testing.T) {
	out, err := execute(t, `{"kind":7,"content":"+","tags":[]}`, "decode")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_CODEC]")

	_, err = execute(t, `not json`, "decode")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDTag(t *testing.T) {
	out, err := execute(t, "", "dtag", "new", "-n", "2")
	require.NoError(t, err)
	assert.Equal(t, testutil.DTag(1)+"\n"+testutil.DTag(2)+"\n", out)

	out, err = execute(t, "", "dtag", "check", testutil.DTag(1))
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	_, err = execute(t, "", "dtag", "check", "AAAAAAAAAAAAAAAAAAAAAB")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "", "dtag", "new", "-n", "0")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckpointCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cp.db")

	_, err := execute(t, "", "--db", db, "checkpoint", "get", "profiles")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err := execute(t, "", "--db", db, "checkpoint", "set", "profiles", "--created-at", "1700000000", "--event-id", "e1")
	require.NoError(t, err)
	assert.Contains(t, out, "profiles")

	_, err = execute(t, "", "--db", db, "checkpoint", "set", "farms", "--created-at", "4102444800000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, checkpoint.ErrNotSeconds)

	out, err = execute(t, "", "--db", db, "--format", "json", "checkpoint", "get", "profiles")
	require.NoError(t, err)
	var resp struct {
		Data checkpoint.ShardCheckpoint `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, checkpoint.EpochSeconds(1700000000), resp.Data.LastCreatedAt)
	require.NotNil(t, resp.Data.LastEventID)
	assert.Equal(t, "e1", *resp.Data.LastEventID)

	out, err = execute(t, "", "--db", db, "checkpoint", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SHARD"))
	assert.Contains(t, lines[1], "1700000000")
}

// farmEvents returns relay events for a farm, one plot and the owner's
// profile, as JSON Lines.
func farmEvents(t *testing.T) string {
	t.Helper()
	farm := codec.FarmRef{Pubkey: "farmer", DTag: testutil.DTag(1)}
	recs := []codec.Record{
		codec.Profile{Name: "Farmer"},
		codec.Farm{DTag: farm.DTag, Name: "Green Acres"},
		codec.Plot{DTag: testutil.DTag(2), Farm: farm, Name: "Orchard"},
	}
	var b strings.Builder
	for i, rec := range recs {
		parts, err := codec.Encode(rec)
		require.NoError(t, err)
		ev := parts.Draft("farmer", testutil.DefaultCreatedAt).Nostr()
		ev.ID = "ev" + string(rune('a'+i))
		line, err := json.Marshal(ev)
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func TestIngestBundleFlow(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "flow.db")
	events := farmEvents(t)

	out, err := execute(t, events, "--db", db, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "3 applied, 0 skipped, 0 rejected")

	out, err = execute(t, events, "--db", db, "--format", "json", "ingest")
	require.NoError(t, err)
	var ingestResp struct {
		Data IngestReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ingestResp))
	assert.Equal(t, 3, ingestResp.Data.Summary.Skipped)
	assert.Equal(t, "duplicate", ingestResp.Data.Events[0].Reason)

	jsonPath := filepath.Join(dir, "farm.json")
	out, err = execute(t, "", "--db", db, "bundle", "build",
		"--author", "farmer", "--farm", testutil.DTag(1), "--profiles", "-o", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 events")

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	b, err := bundle.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []uint32{codec.KindProfile, codec.KindFarm, codec.KindPlot},
		[]uint32{b.Events[0].Kind, b.Events[1].Kind, b.Events[2].Kind})

	binPath := filepath.Join(dir, "farm.bundle")
	_, err = execute(t, "", "--db", db, "bundle", "build",
		"--author", "farmer", "--farm", testutil.DTag(1), "--binary", "-o", binPath)
	require.NoError(t, err)

	for _, path := range []string{jsonPath, binPath} {
		out, err = execute(t, "", "bundle", "verify", path)
		require.NoError(t, err, path)
		assert.Contains(t, out, "bundle v1")

		out, err = execute(t, "", "--db", db, "bundle", "status", path)
		require.NoError(t, err, path)
		assert.Contains(t, out, "3 of 3 keys in sync")
	}

	// A fresh store holds none of it.
	out, err = execute(t, "", "--db", filepath.Join(dir, "empty.db"), "bundle", "status", jsonPath)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "0 of 3 keys in sync")
	assert.Contains(t, out, "FAIL [E_CHECK]: 3 missing, 0 differ")
}

func TestBundleBuild_Errors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "b.db")

	_, err := execute(t, "", "--db", db, "bundle", "build", "--author", "farmer", "--farm", testutil.DTag(9))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, bundle.ErrFarmNotFound)

	_, err = execute(t, "", "--db", db, "bundle", "build", "--author", "farmer", "--farm", "short")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBundleVerify_Version(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v2.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":2,"events":[]}`), 0o644))

	out, err := execute(t, "", "--format", "json", "bundle", "verify", path)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, CodeVersion, resp.Error.Code)
}

func TestSyncCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "sync.db")
	dump := filepath.Join(dir, "dump.jsonl")
	require.NoError(t, os.WriteFile(dump, []byte(farmEvents(t)), 0o644))

	out, err := execute(t, "", "--db", db, "--format", "json", "sync", "--events", dump)
	require.NoError(t, err)
	var resp struct {
		Data SyncReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Shards, 1)
	assert.Equal(t, checkpoint.ShardID("all"), resp.Data.Shards[0].Shard)
	assert.Equal(t, 3, resp.Data.Shards[0].Summary.Applied)

	out, err = execute(t, "", "--db", db, "checkpoint", "get", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "1700000000")

	cfg := filepath.Join(dir, "relaysync.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("sync:\n  shards:\n    - id: farms\n      kinds: [30340]\n"), 0o644))
	out, err = execute(t, "", "--config", cfg, "--db", db, "sync", "--events", dump)
	require.NoError(t, err)
	assert.Contains(t, out, "farms")
}

func TestSync_BadDump(t *testing.T) {
	_, err := execute(t, "{", "--store", "memory", "sync", "--events", "-")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestIngest_OutOfRange(t *testing.T) {
	ev := nostr.Event{ID: "neg", PubKey: "farmer", Kind: -1, CreatedAt: 1}
	line, err := json.Marshal(ev)
	require.NoError(t, err)

	out, err := execute(t, string(line)+"\n", "--store", "memory", "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "rejected neg")
	assert.Contains(t, out, "0 applied, 0 skipped, 1 rejected")
}
