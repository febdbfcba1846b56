// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagecast/rundownd/internal/broadcast"
	"github.com/stagecast/rundownd/internal/health"
	"github.com/stagecast/rundownd/internal/playback"
	"github.com/stagecast/rundownd/internal/rundown"
)

type fakeEngine struct {
	calls []string
	errs  map[string]error

	loadedID string
	addTime  int64
	snap     playback.Snapshot
}

func (f *fakeEngine) record(op string) error {
	f.calls = append(f.calls, op)
	if f.errs == nil {
		return nil
	}
	return f.errs[op]
}

func (f *fakeEngine) Load(id string) error {
	f.loadedID = id
	return f.record("load")
}
func (f *fakeEngine) Start() error { return f.record("start") }
func (f *fakeEngine) Pause() error { return f.record("pause") }
func (f *fakeEngine) Stop() error  { return f.record("stop") }
func (f *fakeEngine) Roll() error  { return f.record("roll") }
func (f *fakeEngine) AddTime(delta int64) error {
	f.addTime = delta
	return f.record("addtime")
}
func (f *fakeEngine) Snapshot() playback.Snapshot { return f.snap }

type fakeHub struct {
	latest broadcast.Frame
}

func (f *fakeHub) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}
func (f *fakeHub) Latest() broadcast.Frame { return f.latest }

type fakeDocs struct {
	entries []rundown.Entry
	loadErr error
	repErr  error
}

func (f *fakeDocs) Load(context.Context) ([]rundown.Entry, error) {
	return f.entries, f.loadErr
}

func (f *fakeDocs) Replace(_ context.Context, entries []rundown.Entry) ([]rundown.Entry, error) {
	if f.repErr != nil {
		return nil, f.repErr
	}
	f.entries = entries
	return entries, nil
}

func newTestServer(t *testing.T, eng *fakeEngine, hub *fakeHub, docs *fakeDocs) *httptest.Server {
	t.Helper()
	if eng == nil {
		eng = &fakeEngine{}
	}
	if hub == nil {
		hub = &fakeHub{}
	}
	if docs == nil {
		docs = &fakeDocs{}
	}
	srv := New(Options{
		Engine:    eng,
		Hub:       hub,
		Documents: docs,
		Health:    health.NewManager("test"),
		RateRPS:   1000,
		RateBurst: 1000,
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestPlaybackCommands(t *testing.T) {
	eng := &fakeEngine{snap: playback.Snapshot{Playback: playback.StatePlay}}
	ts := newTestServer(t, eng, nil, nil)

	for _, op := range []string{"start", "pause", "stop", "roll"} {
		resp := post(t, ts, "/api/v1/playback/"+op)
		assert.Equal(t, http.StatusOK, resp.StatusCode, op)
	}
	assert.Equal(t, []string{"start", "pause", "stop", "roll"}, eng.calls)

	// Success responses carry the fresh snapshot.
	resp := post(t, ts, "/api/v1/playback/start")
	var snap playback.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, playback.StatePlay, snap.Playback)
}

func TestLoadByID(t *testing.T) {
	eng := &fakeEngine{}
	ts := newTestServer(t, eng, nil, nil)

	resp := post(t, ts, "/api/v1/playback/load/evt-42")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "evt-42", eng.loadedID)
}

func TestLoadUnknownEntry(t *testing.T) {
	eng := &fakeEngine{errs: map[string]error{"load": playback.ErrInvalidEntry}}
	ts := newTestServer(t, eng, nil, nil)

	resp := post(t, ts, "/api/v1/playback/load/ghost")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidTransitionIsConflict(t *testing.T) {
	eng := &fakeEngine{errs: map[string]error{"start": playback.ErrNoEntryLoaded}}
	ts := newTestServer(t, eng, nil, nil)

	resp := post(t, ts, "/api/v1/playback/start")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "no entry loaded")
}

func TestAddTime(t *testing.T) {
	eng := &fakeEngine{}
	ts := newTestServer(t, eng, nil, nil)

	resp := post(t, ts, "/api/v1/playback/addtime?amount=-60000")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(-60000), eng.addTime)

	resp = post(t, ts, "/api/v1/playback/addtime?amount=abc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, ts, "/api/v1/playback/addtime")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshotPull(t *testing.T) {
	hub := &fakeHub{latest: broadcast.Frame{Revision: 9, Playback: playback.StatePause}}
	ts := newTestServer(t, nil, hub, nil)

	resp, err := http.Get(ts.URL + "/api/v1/snapshot")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var frame broadcast.Frame
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Equal(t, uint64(9), frame.Revision)
	assert.Equal(t, playback.StatePause, frame.Playback)
}

func TestRundownRoundTrip(t *testing.T) {
	docs := &fakeDocs{}
	ts := newTestServer(t, nil, nil, docs)

	doc := `{"entries":[{"id":"a","kind":"event","title":"Opening","timeStart":28800000,"timeEnd":30600000}]}`
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rundown", strings.NewReader(doc))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(ts.URL + "/api/v1/rundown")
	require.NoError(t, err)
	defer func() { _ = getResp.Body.Close() }()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var got rundownDocument
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Opening", got.Entries[0].Title)
}

func TestPutRundownTimelessEventStaysMalformed(t *testing.T) {
	docs := &fakeDocs{}
	ts := newTestServer(t, nil, nil, docs)

	doc := `{"entries":[` +
		`{"id":"x","kind":"event","title":"No clock"},` +
		`{"id":"a","kind":"event","timeStart":1000000,"timeEnd":2000000}]}`
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rundown", strings.NewReader(doc))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, docs.entries, 2)
	assert.True(t, docs.entries[0].IsMalformed(), "absent times must not decode to midnight")

	// The malformed entry survives the index without entering the schedule.
	idx := rundown.Build(docs.entries)
	x, ok := idx.ByID("x")
	require.True(t, ok, "malformed entries stay visible")
	assert.Equal(t, 0, x.Position)
	assert.Equal(t, rundown.TimeUnset, x.StartTotal)
	assert.Equal(t, 1, idx.Total)
}

func TestPutRundownDuplicateIDs(t *testing.T) {
	docs := &fakeDocs{repErr: rundown.ErrDuplicateID}
	ts := newTestServer(t, nil, nil, docs)

	doc := `{"entries":[{"id":"x","kind":"event"},{"id":"x","kind":"event"}]}`
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rundown", strings.NewReader(doc))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutRundownMalformedBody(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/rundown", strings.NewReader("{nope"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func TestRequestIDEchoed(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/snapshot", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "op-console-7")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "op-console-7", resp.Header.Get("X-Request-Id"))
}
