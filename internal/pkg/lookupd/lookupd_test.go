package lookupd

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/endorses/lexfst/internal/pkg/fst"
	"github.com/endorses/lexfst/internal/pkg/fstfile"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDict compiles kv pairs (already sorted) into a dictionary at path.
func writeDict(t *testing.T, path string, kv ...string) fstfile.Header {
	t.Helper()
	var ps []fst.Pair
	for i := 0; i+1 < len(kv); i += 2 {
		ps = append(ps, fst.Pair{Key: []byte(kv[i]), Output: []byte(kv[i+1])})
	}
	a, err := fst.Build(ps)
	require.NoError(t, err)
	h := fstfile.NewHeader(a)
	require.NoError(t, fstfile.WriteFile(path, fst.Compile(a), h))
	return h
}

func monthsDict(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "months.fst")
	writeDict(t, path,
		"apr", "30",
		"feb", "28",
		"feb", "29",
		"jan", "31",
		"june", "30",
	)
	return path
}

func TestStore_Reload(t *testing.T) {
	path := monthsDict(t)
	metrics := NewMetrics()
	store := NewStore(path, metrics)
	assert.Nil(t, store.Current())

	result, err := store.Reload()
	require.NoError(t, err)
	assert.Equal(t, ReloadSuccess, result)

	snap := store.Current()
	require.NotNil(t, snap)
	assert.Equal(t, uint32(4), snap.Header.Keys)
	assert.Equal(t, snap.FST.Size(), snap.Stats.Bytes)
	assert.Equal(t, float64(snap.Stats.Bytes), testutil.ToFloat64(metrics.fstBytes))

	// Reloading the same file does not swap.
	result, err = store.Reload()
	require.NoError(t, err)
	assert.Equal(t, ReloadUnchanged, result)
	assert.Same(t, snap, store.Current())
	assert.Equal(t, uint64(1), store.Reloads())

	// A new build replaces the snapshot.
	writeDict(t, path, "may", "31")
	result, err = store.Reload()
	require.NoError(t, err)
	assert.Equal(t, ReloadSuccess, result)
	assert.NotSame(t, snap, store.Current())
	assert.Equal(t, uint32(1), store.Current().Header.Keys)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.reloads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.reloads.WithLabelValues("unchanged")))
}

func TestStore_FailedReloadKeepsSnapshot(t *testing.T) {
	path := monthsDict(t)
	store := NewStore(path, nil)
	_, err := store.Reload()
	require.NoError(t, err)
	snap := store.Current()

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	result, err := store.Reload()
	assert.Error(t, err)
	assert.Equal(t, ReloadFailure, result)
	assert.Same(t, snap, store.Current())

	require.NoError(t, os.Remove(path))
	_, err = store.Reload()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Same(t, snap, store.Current())
}

func TestStore_ConcurrentReadersDuringReload(t *testing.T) {
	path := monthsDict(t)
	store := NewStore(path, nil)
	_, err := store.Reload()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := store.Current()
				if _, err := snap.FST.Lookup([]byte("feb")); err != nil {
					t.Errorf("lookup during reload: %v", err)
					return
				}
			}
		}()
	}

	for i := range 5 {
		if i%2 == 0 {
			writeDict(t, path, "feb", "28")
		} else {
			writeDict(t, path, "feb", "29", "jan", "31")
		}
		_, err := store.Reload()
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
}

func newTestServer(t *testing.T) (*httptest.Server, *Metrics) {
	t.Helper()
	metrics := NewMetrics()
	store := NewStore(monthsDict(t), metrics)
	_, err := store.Reload()
	require.NoError(t, err)

	ts := httptest.NewServer(NewServer(store, metrics, Config{}).Handler())
	t.Cleanup(ts.Close)
	return ts, metrics
}

func getJSON(t *testing.T, rawURL string, v any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServer_Lookup(t *testing.T) {
	ts, metrics := newTestServer(t)

	tests := []struct {
		name         string
		path         string
		wantAccepted bool
		wantOutputs  []string
	}{
		{name: "hit", path: "/v1/lookup?key=feb", wantAccepted: true, wantOutputs: []string{"28", "29"}},
		{name: "miss", path: "/v1/lookup?key=xxx", wantAccepted: false, wantOutputs: []string{}},
		{name: "prefix is not a key", path: "/v1/lookup?key=jun", wantAccepted: false, wantOutputs: []string{}},
		{name: "match crosses final", path: "/v1/match?key=junex", wantAccepted: true, wantOutputs: []string{"30"}},
		{name: "match exact", path: "/v1/match?key=" + url.QueryEscape("june"), wantAccepted: true, wantOutputs: []string{"30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp LookupResponse
			status := getJSON(t, ts.URL+tt.path, &resp)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.wantAccepted, resp.Accepted)
			assert.Equal(t, tt.wantOutputs, resp.Outputs)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.lookups.WithLabelValues("lookup", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.lookups.WithLabelValues("lookup", "miss")))
}

func TestServer_BadRequests(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "missing key", method: http.MethodGet, path: "/v1/lookup", wantStatus: http.StatusBadRequest},
		{name: "missing query", method: http.MethodGet, path: "/v1/prefixes", wantStatus: http.StatusBadRequest},
		{name: "key too long", method: http.MethodGet, path: "/v1/lookup?key=" + strings.Repeat("a", 70*1024), wantStatus: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodPost, path: "/v1/lookup?key=feb", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/v2/lookup", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestServer_Prefixes(t *testing.T) {
	ts, _ := newTestServer(t)

	var resp PrefixesResponse
	status := getJSON(t, ts.URL+"/v1/prefixes?q=february", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "february", resp.Query)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, PrefixMatch{Key: "feb", Length: 3, Outputs: []string{"28", "29"}}, resp.Matches[0])

	status = getJSON(t, ts.URL+"/v1/prefixes?q=zzz", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, resp.Matches)
}

func TestServer_StatsHealthMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	var stats StatsResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/stats", &stats))
	assert.Equal(t, uint32(4), stats.Keys)
	assert.Positive(t, stats.States)
	assert.Equal(t, uint64(1), stats.Reloads)
	assert.NotEmpty(t, stats.Version.GoVersion)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	// Record one lookup so the counter shows up.
	getJSON(t, ts.URL+"/v1/lookup?key=apr", nil)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "lexfst_lookups_total")
	assert.Contains(t, string(body), "lexfst_fst_states")
}

func TestServer_NotReady(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.fst"), nil)
	ts := httptest.NewServer(NewServer(store, nil, Config{}).Handler())
	defer ts.Close()

	var errResp errorResponse
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, ts.URL+"/v1/lookup?key=feb", &errResp))
	assert.NotEmpty(t, errResp.Error)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Metrics are disabled without a collector.
	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CorruptDictionary(t *testing.T) {
	store := NewStore("unused", nil)
	store.Set(&Snapshot{FST: fst.New([]byte{0x02, 'a', 100, 0, 0, 0})})
	ts := httptest.NewServer(NewServer(store, nil, Config{}).Handler())
	defer ts.Close()

	var errResp errorResponse
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, ts.URL+"/v1/lookup?key=a", &errResp))
	assert.Equal(t, "dictionary is corrupt", errResp.Error)
}

func TestServer_RunShutsDown(t *testing.T) {
	store := NewStore(monthsDict(t), nil)
	_, err := store.Reload()
	require.NoError(t, err)
	srv := NewServer(store, nil, Config{ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	var resp LookupResponse
	require.Eventually(t, func() bool {
		r, err := http.Get("http://" + ln.Addr().String() + "/v1/lookup?key=jan")
		if err != nil {
			return false
		}
		defer r.Body.Close()
		return json.NewDecoder(r.Body).Decode(&resp) == nil
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"31"}, resp.Outputs)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_RunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer(NewStore("unused", nil), nil, Config{Addr: ln.Addr().String()})
	assert.Error(t, srv.Run(context.Background()))
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	for _, polling := range []bool{false, true} {
		name := "fsnotify"
		if polling {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			path := monthsDict(t)
			store := NewStore(path, nil)
			_, err := store.Reload()
			require.NoError(t, err)

			w := NewWatcher(store, WatcherConfig{
				PollInterval: 20 * time.Millisecond,
				Debounce:     20 * time.Millisecond,
				ForcePolling: polling,
			})
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- w.Run(ctx) }()
			defer func() {
				cancel()
				assert.NoError(t, <-done)
			}()

			// Give the watcher time to register before the file changes.
			time.Sleep(100 * time.Millisecond)
			h := writeDict(t, path, "dec", "31")

			assert.Eventually(t, func() bool {
				snap := store.Current()
				return snap != nil && snap.Header.BuildID == h.BuildID
			}, 3*time.Second, 20*time.Millisecond)
		})
	}
}

func TestWatcher_Trigger(t *testing.T) {
	path := monthsDict(t)
	store := NewStore(path, nil)

	w := NewWatcher(store, WatcherConfig{PollInterval: time.Hour, ForcePolling: true})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	w.Trigger()
	w.Trigger()
	assert.Eventually(t, func() bool { return store.Current() != nil }, 2*time.Second, 10*time.Millisecond)
}
