// Soundcheck - Setlist Voting and Show Discovery
// Copyright 2026 swbam
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/swbam/soundcheck

package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/swbam/soundcheck/internal/config"
	"github.com/swbam/soundcheck/internal/models"
	"github.com/swbam/soundcheck/internal/store"
	syncengine "github.com/swbam/soundcheck/internal/sync"
	"github.com/swbam/soundcheck/internal/trending"
	"github.com/swbam/soundcheck/internal/vote"
)

const testVoter = "7f9c8d3a-1b2e-4c5d-8e9f-0a1b2c3d4e5f"

// fakeSyncManager scripts the sync control plane for handler tests.
type fakeSyncManager struct {
	cycles     []models.SyncCycle
	triggerErr error
	cancelErr  error
	triggered  []models.SyncType
	cancelled  []string
}

func (f *fakeSyncManager) Trigger(typ models.SyncType) (models.SyncCycle, error) {
	if f.triggerErr != nil {
		return models.SyncCycle{}, f.triggerErr
	}
	f.triggered = append(f.triggered, typ)
	return models.SyncCycle{ID: "cycle-1", Type: typ, State: models.CycleRunning}, nil
}

func (f *fakeSyncManager) Status(id string) (models.SyncCycle, error) {
	for _, c := range f.cycles {
		if c.ID == id {
			return c, nil
		}
	}
	return models.SyncCycle{}, syncengine.ErrCycleNotFound
}

func (f *fakeSyncManager) List() []models.SyncCycle {
	return f.cycles
}

func (f *fakeSyncManager) SourceStates() map[string]string {
	return map[string]string{"catalog": "closed", "events": "closed"}
}

func (f *fakeSyncManager) Cancel(id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	for _, c := range f.cycles {
		if c.ID == id {
			f.cancelled = append(f.cancelled, id)
			return nil
		}
	}
	return syncengine.ErrCycleNotFound
}

// capturedVote records what the handler published on the bus.
type capturedVote struct {
	voterID, entryID, transition string
	tally                        models.Tally
}

type fakePublisher struct {
	votes []capturedVote
}

func (f *fakePublisher) VoteApplied(voterID, entryID, transition string, tally models.Tally) {
	f.votes = append(f.votes, capturedVote{voterID, entryID, transition, tally})
}

type testEnv struct {
	store  store.Store
	sync   *fakeSyncManager
	pub    *fakePublisher
	server http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	env := &testEnv{
		store: st,
		sync:  &fakeSyncManager{},
		pub:   &fakePublisher{},
	}

	scorer := trending.NewScorer(st, config.TrendingConfig{
		VoteWeight:     75,
		ShowBoost:      1000,
		FollowerWeight: 0.1,
		MaxLimit:       100,
	})
	handler := NewHandler(vote.NewAggregator(st), scorer, env.sync, env.pub, st)

	cfg := config.ServerConfig{
		VoteRateLimit:  1000,
		VoteRateWindow: time.Minute,
	}
	env.server = NewRouter(handler, cfg).Setup()
	return env
}

// seedEntry persists a show with one votable setlist entry and returns
// the entry ID.
func (env *testEnv) seedEntry(t *testing.T, locked bool) string {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	artist := &models.Artist{ID: "artist-1", Name: "The Nationals", Slug: "the-nationals", CreatedAt: now, UpdatedAt: now}
	if err := env.store.PutArtist(ctx, artist); err != nil {
		t.Fatalf("PutArtist: %v", err)
	}
	show := &models.Show{ID: "show-1", ArtistID: artist.ID, Date: now.Add(48 * time.Hour), Status: models.ShowUpcoming, CreatedAt: now, UpdatedAt: now}
	if err := env.store.PutShow(ctx, show); err != nil {
		t.Fatalf("PutShow: %v", err)
	}
	setlist := &models.Setlist{ID: "setlist-1", ShowID: show.ID, Type: models.SetlistPredicted, Locked: locked, CreatedAt: now, UpdatedAt: now}
	if err := env.store.PutSetlist(ctx, setlist); err != nil {
		t.Fatalf("PutSetlist: %v", err)
	}
	entry := &models.SetlistEntry{ID: "entry-1", SetlistID: setlist.ID, SongID: "song-1", Position: 1, CreatedAt: now, UpdatedAt: now}
	if err := env.store.PutEntry(ctx, entry); err != nil {
		t.Fatalf("PutEntry: %v", err)
	}
	return entry.ID
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func doRequest(t *testing.T, h http.Handler, method, path, voterID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if voterID != "" {
		req.Header.Set(voterHeader, voterID)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Non-JSON bodies happen on middleware rejections (429 from httprate).
	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func checkErrorCode(t *testing.T, env envelope, code string) {
	t.Helper()
	if env.Error == nil {
		t.Fatalf("expected error code %s, got success envelope", code)
	}
	if env.Error.Code != code {
		t.Fatalf("expected error code %s, got %s (%s)", code, env.Error.Code, env.Error.Message)
	}
}

func TestCastVoteHappyPath(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, false)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter,
		map[string]string{"entry_id": entryID, "direction": "up"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var data voteResponse
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Transition != string(vote.TransitionCast) {
		t.Fatalf("expected cast transition, got %s", data.Transition)
	}
	if data.Tally.Upvotes != 1 || data.Tally.Downvotes != 0 {
		t.Fatalf("unexpected tally %+v", data.Tally)
	}

	if len(env.pub.votes) != 1 {
		t.Fatalf("expected 1 published vote, got %d", len(env.pub.votes))
	}
	if env.pub.votes[0].entryID != entryID || env.pub.votes[0].voterID != testVoter {
		t.Fatalf("published vote has wrong identity: %+v", env.pub.votes[0])
	}
}

func TestCastVoteMissingVoterHeader(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, false)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", "",
		map[string]string{"entry_id": entryID, "direction": "up"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeUnauthorized)
}

func TestCastVoteInvalidVoterID(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, false)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", "not-a-uuid",
		map[string]string{"entry_id": entryID, "direction": "up"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeValidation)
}

func TestCastVoteInvalidDirection(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, false)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter,
		map[string]string{"entry_id": entryID, "direction": "sideways"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeValidation)
}

func TestCastVoteUnknownEntry(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter,
		map[string]string{"entry_id": "missing", "direction": "up"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeNotFound)
}

func TestCastVoteLockedSetlist(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, true)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter,
		map[string]string{"entry_id": entryID, "direction": "up"})

	if rec.Code != http.StatusLocked {
		t.Fatalf("expected 423, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeLocked)
	if len(env.pub.votes) != 0 {
		t.Fatal("locked vote must not be published")
	}
}

func TestCastVoteMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/votes", bytes.NewBufferString("{nope"))
	req.Header.Set(voterHeader, testVoter)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVoteToggleThroughAPI(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, false)

	body := map[string]string{"entry_id": entryID, "direction": "up"}
	_, first := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter, body)
	_, second := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter, body)

	var firstData, secondData voteResponse
	if err := json.Unmarshal(first.Data, &firstData); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal(second.Data, &secondData); err != nil {
		t.Fatalf("decode second: %v", err)
	}

	if firstData.Transition != string(vote.TransitionCast) || secondData.Transition != string(vote.TransitionRetract) {
		t.Fatalf("expected cast then retract, got %s then %s", firstData.Transition, secondData.Transition)
	}
	if secondData.Tally.Upvotes != 0 {
		t.Fatalf("toggle should zero the tally, got %+v", secondData.Tally)
	}
}

func TestTrendingShowsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedEntry(t, false)

	rec, resp := doRequest(t, env.server, http.MethodGet, "/api/v1/trending/shows?timeframe=week", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var items []trending.ShowRank
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 trending show, got %d", len(items))
	}
	if resp.Metadata.Count != 1 {
		t.Fatalf("expected count metadata 1, got %d", resp.Metadata.Count)
	}
}

func TestTrendingArtistsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedEntry(t, false)

	rec, resp := doRequest(t, env.server, http.MethodGet, "/api/v1/trending/artists", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []trending.ArtistRank
	if err := json.Unmarshal(resp.Data, &items); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 trending artist, got %d", len(items))
	}
}

func TestTrendingRejectsBadTimeframe(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := doRequest(t, env.server, http.MethodGet, "/api/v1/trending/shows?timeframe=fortnight", "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeBadRequest)
}

func TestTrendingUnknownEntity(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := doRequest(t, env.server, http.MethodGet, "/api/v1/trending/venues", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTriggerSyncDefaultsToFull(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/sync/trigger", "", nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var cycle models.SyncCycle
	if err := json.Unmarshal(resp.Data, &cycle); err != nil {
		t.Fatalf("decode cycle: %v", err)
	}
	if cycle.Type != models.SyncFull {
		t.Fatalf("expected full cycle, got %s", cycle.Type)
	}
	if len(env.sync.triggered) != 1 || env.sync.triggered[0] != models.SyncFull {
		t.Fatalf("manager saw %v", env.sync.triggered)
	}
}

func TestTriggerSyncExplicitType(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := doRequest(t, env.server, http.MethodPost, "/api/v1/sync/trigger", "",
		map[string]string{"type": "catalog"})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(env.sync.triggered) != 1 || env.sync.triggered[0] != models.SyncCatalog {
		t.Fatalf("manager saw %v", env.sync.triggered)
	}
}

func TestTriggerSyncRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/sync/trigger", "",
		map[string]string{"type": "everything"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeValidation)
	if len(env.sync.triggered) != 0 {
		t.Fatal("invalid type must not reach the orchestrator")
	}
}

func TestTriggerSyncConflictWhileRunning(t *testing.T) {
	env := newTestEnv(t)
	env.sync.triggerErr = syncengine.ErrCycleRunning

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/sync/trigger", "", nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeConflict)
}

func TestSyncCycleStatusAndList(t *testing.T) {
	env := newTestEnv(t)
	env.sync.cycles = []models.SyncCycle{
		{ID: "c2", Type: models.SyncFull, State: models.CycleRunning},
		{ID: "c1", Type: models.SyncEvents, State: models.CycleHealthy},
	}

	rec, resp := doRequest(t, env.server, http.MethodGet, "/api/v1/sync/cycles", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cycles []models.SyncCycle
	if err := json.Unmarshal(resp.Data, &cycles); err != nil {
		t.Fatalf("decode cycles: %v", err)
	}
	if len(cycles) != 2 || cycles[0].ID != "c2" {
		t.Fatalf("unexpected cycle list %+v", cycles)
	}

	rec, resp = doRequest(t, env.server, http.MethodGet, "/api/v1/sync/cycles/c1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cycle models.SyncCycle
	if err := json.Unmarshal(resp.Data, &cycle); err != nil {
		t.Fatalf("decode cycle: %v", err)
	}
	if cycle.State != models.CycleHealthy {
		t.Fatalf("unexpected cycle %+v", cycle)
	}

	rec, resp = doRequest(t, env.server, http.MethodGet, "/api/v1/sync/cycles/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeNotFound)
}

func TestCancelSyncCycle(t *testing.T) {
	env := newTestEnv(t)
	env.sync.cycles = []models.SyncCycle{{ID: "c1", State: models.CycleRunning}}

	rec, _ := doRequest(t, env.server, http.MethodDelete, "/api/v1/sync/cycles/c1", "", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(env.sync.cancelled) != 1 || env.sync.cancelled[0] != "c1" {
		t.Fatalf("manager saw cancels %v", env.sync.cancelled)
	}

	rec, resp := doRequest(t, env.server, http.MethodDelete, "/api/v1/sync/cycles/ghost", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeNotFound)

	env.sync.cancelErr = errors.New("sync: cycle c1 already finished")
	rec, resp = doRequest(t, env.server, http.MethodDelete, "/api/v1/sync/cycles/c1", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	checkErrorCode(t, resp, codeConflict)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.sync.cycles = []models.SyncCycle{{ID: "c1", Type: models.SyncFull, State: models.CycleHealthy}}

	rec, resp := doRequest(t, env.server, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Status      string            `json:"status"`
		Store       string            `json:"store"`
		Sources     map[string]string `json:"sources"`
		SyncRunning bool              `json:"sync_running"`
		LastCycle   struct {
			State models.CycleState `json:"state"`
		} `json:"last_cycle"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if payload.Status != "ok" || payload.SyncRunning {
		t.Fatalf("unexpected health payload %+v", payload)
	}
	if payload.Store != "ok" {
		t.Fatalf("expected store ok, got %q", payload.Store)
	}
	if payload.Sources["catalog"] != "closed" {
		t.Fatalf("expected catalog breaker state, got %+v", payload.Sources)
	}
	if payload.LastCycle.State != models.CycleHealthy {
		t.Fatalf("expected last cycle state, got %+v", payload)
	}
}

func TestRecountEndpointRepairsDrift(t *testing.T) {
	env := newTestEnv(t)
	entryID := env.seedEntry(t, false)

	doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter,
		map[string]string{"entry_id": entryID, "direction": "up"})

	// Inject drift directly, then recount through the API.
	if err := env.store.SetCounters(context.Background(), entryID, 9, 4); err != nil {
		t.Fatalf("SetCounters: %v", err)
	}

	rec, resp := doRequest(t, env.server, http.MethodPost, "/api/v1/setlists/setlist-1/recount", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		SetlistID string `json:"setlist_id"`
		Repaired  int    `json:"repaired"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("decode recount: %v", err)
	}
	if payload.Repaired != 1 {
		t.Fatalf("expected 1 repaired entry, got %d", payload.Repaired)
	}

	entry, err := env.store.GetEntry(context.Background(), entryID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if entry.Upvotes != 1 || entry.Downvotes != 0 {
		t.Fatalf("counters not repaired: %+v", entry)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
}

func TestVoteRateLimitEnforced(t *testing.T) {
	st := store.NewMemoryStore()
	t.Cleanup(func() { _ = st.Close() })

	env := &testEnv{store: st, sync: &fakeSyncManager{}, pub: &fakePublisher{}}
	scorer := trending.NewScorer(st, config.TrendingConfig{MaxLimit: 100})
	handler := NewHandler(vote.NewAggregator(st), scorer, env.sync, env.pub, st)
	env.server = NewRouter(handler, config.ServerConfig{
		VoteRateLimit:  2,
		VoteRateWindow: time.Minute,
	}).Setup()

	entryID := env.seedEntry(t, false)
	body := map[string]string{"entry_id": entryID, "direction": "up"}

	doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter, body)
	doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter, body)
	rec, _ := doRequest(t, env.server, http.MethodPost, "/api/v1/votes", testVoter, body)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third vote, got %d", rec.Code)
	}
}
