package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/corewave/agentcore/rpctool"
	"github.com/corewave/agentcore/value"
)

type fakeProvider struct {
	kind  value.ProviderKind
	reply value.Reply
}

func (f *fakeProvider) Kind() value.ProviderKind                   { return f.kind }
func (f *fakeProvider) Ask(context.Context, value.Ask) value.Reply { return f.reply }

func TestRegisterInlineAndCallTool(t *testing.T) {
	r := New()
	fp := &fakeProvider{reply: value.Reply{OK: true, Output: value.Map("text", "hi")}}
	require.NoError(t, r.Register("adder", Inline(fp)))

	require.True(t, r.HasTool("adder"))
	require.Equal(t, 1, r.ToolCount())

	reply, ok := r.CallTool(context.Background(), "adder", value.Ask{})
	require.True(t, ok)
	require.True(t, reply.OK)
}

func TestCallToolUnknownNameReturnsNotOK(t *testing.T) {
	r := New()
	_, ok := r.CallTool(context.Background(), "missing", value.Ask{})
	require.False(t, ok)
}

func fakeHandshakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"ok": true}})
	}))
}

func TestRegisterRemoteURLPerformsHandshake(t *testing.T) {
	server := fakeHandshakeServer(t)
	defer server.Close()

	r := New()
	require.NoError(t, r.Register("remote-tool", RemoteURL(server.URL, time.Second)))
	require.True(t, r.HasTool("remote-tool"))
}

func TestRegisterRemoteURLFailsOnUnreachableEndpoint(t *testing.T) {
	r := New()
	err := r.Register("remote-tool", RemoteURL("http://127.0.0.1:1", 50*time.Millisecond))
	require.Error(t, err)
	require.False(t, r.HasTool("remote-tool"))
}

func TestRegisterConfigFileIgnoresCallerNameUsesFileKeys(t *testing.T) {
	server := fakeHandshakeServer(t)
	defer server.Close()

	f, err := os.CreateTemp(t.TempDir(), "tools-*.json")
	require.NoError(t, err)
	mapping := map[string]string{"file-adder": server.URL, "file-subber": server.URL}
	require.NoError(t, json.NewEncoder(f).Encode(mapping))
	require.NoError(t, f.Close())

	r := New()
	require.NoError(t, r.Register("ignored-name", ConfigFile(f.Name(), time.Second)))

	require.False(t, r.HasTool("ignored-name"))
	require.True(t, r.HasTool("file-adder"))
	require.True(t, r.HasTool("file-subber"))
	require.Equal(t, 2, r.ToolCount())
}

func TestRegisterConfigFileMissingFileErrors(t *testing.T) {
	r := New()
	err := r.Register("x", ConfigFile("/nonexistent/path.json", time.Second))
	require.Error(t, err)
}

// schemaCountingServer answers handshake/schema/invoke and counts how many
// "schema" calls it receives, so a test can prove a shared schemaCache
// keeps multiple Registry instances from each re-fetching the same schema.
func schemaCountingServer(t *testing.T, schemaCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Method == "schema" {
			atomic.AddInt32(schemaCalls, 1)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"ok": true}})
	}))
}

func TestNewWithSchemaCacheSharesSchemaAcrossRegistries(t *testing.T) {
	var schemaCalls int32
	server := schemaCountingServer(t, &schemaCalls)
	defer server.Close()

	mr := miniredis.RunT(t)
	cache := rpctool.NewRedisSchemaCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	r1 := NewWithSchemaCache(cache)
	require.NoError(t, r1.Register("tool", RemoteURL(server.URL, time.Second)))
	r1.CallTool(context.Background(), "tool", value.Ask{Op: "tool"})

	// A second Registry (standing in for a second Agent instance) backed
	// by the same cache must not re-fetch the schema this endpoint already
	// served once.
	r2 := NewWithSchemaCache(cache)
	require.NoError(t, r2.Register("tool", RemoteURL(server.URL, time.Second)))
	r2.CallTool(context.Background(), "tool", value.Ask{Op: "tool"})

	require.EqualValues(t, 1, atomic.LoadInt32(&schemaCalls))
}

func TestGetReturnsRegisteredProvider(t *testing.T) {
	r := New()
	fp := &fakeProvider{}
	require.NoError(t, r.Register("adder", Inline(fp)))

	got, ok := r.Get("adder")
	require.True(t, ok)
	require.Same(t, fp, got)

	_, ok = r.Get("missing")
	require.False(t, ok)
}
