package rpctool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corewave/agentcore/value"
)

func fakeRPCServer(t *testing.T, handlers map[string]func(params value.Value) (value.Value, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		h, ok := handlers[req.Method]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		result, errMsg := h(req.Params)
		reply := rpcReply{Result: result}
		if errMsg != "" {
			reply.Error = errMsg
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

func TestNewSucceedsOnSuccessfulHandshake(t *testing.T) {
	server := fakeRPCServer(t, map[string]func(value.Value) (value.Value, string){
		"handshake": func(value.Value) (value.Value, string) { return value.Map("ok", true), "" },
	})
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestNewFailsWhenHandshakeErrors(t *testing.T) {
	server := fakeRPCServer(t, map[string]func(value.Value) (value.Value, string){
		"handshake": func(value.Value) (value.Value, string) { return nil, "handshake rejected" },
	})
	defer server.Close()

	_, err := New(server.URL, time.Second)
	require.Error(t, err)
}

func TestAskInvokesToolAndFetchesSchemaOnce(t *testing.T) {
	schemaCalls := 0
	server := fakeRPCServer(t, map[string]func(value.Value) (value.Value, string){
		"handshake": func(value.Value) (value.Value, string) { return value.Map(), "" },
		"schema": func(value.Value) (value.Value, string) {
			schemaCalls++
			return value.Map("type", "object"), ""
		},
		"invoke": func(params value.Value) (value.Value, string) {
			m := value.AsMap(params)
			return value.Map("echo", m["input"]), ""
		},
	})
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)

	reply := p.Ask(context.Background(), value.Ask{Op: "adder", Input: value.Map("a", 1.0)})
	require.True(t, reply.OK)

	p.Ask(context.Background(), value.Ask{Op: "adder", Input: value.Map("a", 2.0)})
	require.Equal(t, 1, schemaCalls)
}

func TestAskSurfacesInvokeError(t *testing.T) {
	server := fakeRPCServer(t, map[string]func(value.Value) (value.Value, string){
		"handshake": func(value.Value) (value.Value, string) { return value.Map(), "" },
		"schema":    func(value.Value) (value.Value, string) { return value.Map(), "" },
		"invoke":    func(value.Value) (value.Value, string) { return nil, "tool blew up" },
	})
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)

	reply := p.Ask(context.Background(), value.Ask{Op: "adder", Input: value.Map()})
	require.False(t, reply.OK)
	require.Contains(t, value.AsMap(reply.Output)["error"], "correlation")
}

func TestCallTagsEachRequestWithADistinctCorrelationHeader(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("X-Correlation-ID"))
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rpcReply{Result: value.Map()})
	}))
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)

	_, err = p.call(context.Background(), "schema", value.Map("tool", "adder"))
	require.NoError(t, err)

	require.Len(t, seen, 2)
	require.NotEmpty(t, seen[0])
	require.NotEmpty(t, seen[1])
	require.NotEqual(t, seen[0], seen[1])
}

func TestSchemaFetchFailureDoesNotBlockInvoke(t *testing.T) {
	server := fakeRPCServer(t, map[string]func(value.Value) (value.Value, string){
		"handshake": func(value.Value) (value.Value, string) { return value.Map(), "" },
		"schema":    func(value.Value) (value.Value, string) { return nil, "no schema" },
		"invoke":    func(value.Value) (value.Value, string) { return value.Map("ok", true), "" },
	})
	defer server.Close()

	p, err := New(server.URL, time.Second)
	require.NoError(t, err)

	reply := p.Ask(context.Background(), value.Ask{Op: "adder", Input: value.Map()})
	require.True(t, reply.OK)
}
