package nodeclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPool(t *testing.T, urls ...string) *Pool {
	t.Helper()
	p := NewPool(urls, "", testLogger())
	return p
}

func TestPoolProbeAllMarksHealthyNodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(NodeInfo{FullHeight: 10})
	}))
	defer srv.Close()

	p := newTestPool(t, srv.URL)
	p.probeAll(context.Background())

	require.Equal(t, 1, p.HealthyCount())
}

func TestPoolProbeAllMarksUnhealthyAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestPool(t, srv.URL)
	for i := 0; i < unhealthyAfterFails; i++ {
		p.probeAll(context.Background())
	}

	require.Equal(t, 0, p.HealthyCount())
}

func TestPoolCallFailsWithNoHealthyNode(t *testing.T) {
	p := newTestPool(t)
	_, err := p.GetInfo(context.Background())
	require.ErrorIs(t, err, ErrNoHealthyNode)
}

func TestPoolCallRoutesToHealthyNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(NodeInfo{FullHeight: 99})
	}))
	defer srv.Close()

	p := newTestPool(t, srv.URL)
	p.probeAll(context.Background())

	info, err := p.GetInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(99), info.FullHeight)
}

func TestPoolNodesReportsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(NodeInfo{FullHeight: 7, AppVersion: "5.0.1"})
	}))
	defer srv.Close()

	p := newTestPool(t, srv.URL)
	p.probeAll(context.Background())

	nodes := p.Nodes()
	require.Len(t, nodes, 1)
	require.True(t, nodes[0].Connected)
	require.Equal(t, int64(7), nodes[0].Height)
	require.Equal(t, "5.0.1", nodes[0].AppVersion)
}
