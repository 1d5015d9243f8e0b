package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"crewtime/internal/admin"
	"crewtime/internal/attendance"
	"crewtime/internal/db"
	"crewtime/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeSyncer struct {
	month string
	rows  int
	err   error
}

func (f *fakeSyncer) SyncMonth(_ context.Context, monthTitle string, rows []model.Entry, _ *time.Location) error {
	f.month = monthTitle
	f.rows = len(rows)
	return f.err
}

type testEnv struct {
	server *httptest.Server
	clock  *testClock
	store  *db.DB
	syncer *fakeSyncer
	loc    *time.Location
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store, err := db.New(filepath.Join(t.TempDir(), "api_test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	clock := &testClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, loc)}

	svc := attendance.NewService(store, attendance.Options{
		Clock:    clock,
		Location: loc,
		AdminPIN: "1103",
	}, zerolog.Nop())
	adminSvc := admin.NewService(store, loc, zerolog.Nop())
	syncer := &fakeSyncer{}

	srv := NewServer(svc, adminSvc, nil, syncer, loc, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, clock: clock, store: store, syncer: syncer, loc: loc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCheckInCheckOutFlow(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田", "鈴木"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[model.Entry](t, resp)
	assert.Equal(t, "2026-03-14", entry.Date)
	assert.Equal(t, []string{"山田", "鈴木"}, entry.MemberNames)
	assert.Equal(t, model.StatusInProgress, entry.Status)

	// Second check-in on the open slot conflicts.
	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"佐藤"}})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "この役割は既に出勤中です。退勤してください。", errResp.Error)

	env.clock.Set(time.Date(2026, 3, 14, 17, 30, 0, 0, env.loc))
	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decode[model.Entry](t, resp)
	require.NotNil(t, done.Minutes)
	assert.Equal(t, 510, *done.Minutes)
	assert.Equal(t, model.StatusDone, done.Status)
}

func TestCheckIn_Validation(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"  ", ""}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "メンバーを1名以上選択・追加してください", errResp.Error)

	resp = env.do(t, http.MethodPost, "/api/kiosk/HallC/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCheckOut_NoOpenEntry(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallB/VIDEO/checkout", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "出勤中のレコードがありません", errResp.Error)
}

func TestSlotAndBoard(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/LIGHTING/checkin",
		CheckInRequest{Names: []string{"佐藤"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/kiosk/HallA/LIGHTING", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slot := decode[SlotResponse](t, resp)
	assert.True(t, slot.Open)
	require.NotNil(t, slot.Entry)
	assert.Equal(t, []string{"佐藤"}, slot.Entry.MemberNames)
	require.Len(t, slot.Roster, 1)
	assert.Equal(t, "佐藤", slot.Roster[0].Name)

	resp = env.do(t, http.MethodGet, "/api/kiosk/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decode[[]attendance.BoardSlot](t, resp)
	require.Len(t, board, 6)
	openCount := 0
	for _, s := range board {
		if s.Open {
			openCount++
			assert.Equal(t, model.HallA, s.Hall)
			assert.Equal(t, model.RoleLighting, s.Role)
		}
	}
	assert.Equal(t, 1, openCount)
}

func TestToggleMember(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallB/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/kiosk/HallB/AUDIO/members",
		ToggleMemberRequest{Name: "田中"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decode[model.Entry](t, resp)
	assert.Equal(t, []string{"山田", "田中"}, entry.MemberNames)

	// Toggling the last member off is rejected.
	resp = env.do(t, http.MethodPost, "/api/kiosk/HallB/AUDIO/members",
		ToggleMemberRequest{Name: "田中"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = env.do(t, http.MethodPost, "/api/kiosk/HallB/AUDIO/members",
		ToggleMemberRequest{Name: "山田"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestCorrectCheckInTime(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/VIDEO/checkin",
		CheckInRequest{Names: []string{"山田"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/VIDEO/checkin-time",
		CorrectTimeRequest{Time: "08:30", PIN: "0000"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "PINが違います", errResp.Error)

	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/VIDEO/checkin-time",
		CorrectTimeRequest{Time: "24:00", PIN: "1103"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/VIDEO/checkin-time",
		CorrectTimeRequest{Time: "08:30", PIN: "1103"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decode[model.Entry](t, resp)
	assert.Equal(t, "08:30", entry.CheckIn.In(env.loc).Format("15:04"))
	assert.Equal(t, "2026-03-14", entry.Date)
}

func TestAdminListAndUpdate(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[model.Entry](t, resp)

	env.clock.Set(time.Date(2026, 3, 14, 18, 0, 0, 0, env.loc))
	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/admin/entries?month=2026-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[admin.Listing](t, resp)
	assert.Equal(t, "2026年3月", listing.Title)
	require.Len(t, listing.Rows, 1)
	assert.Equal(t, 540, listing.TotalMinutes)

	// Defaulting to the current month finds the same record.
	resp = env.do(t, http.MethodGet, "/api/admin/entries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing = decode[admin.Listing](t, resp)
	assert.Len(t, listing.Rows, 1)

	checkOut := "17:30"
	memo := "早退"
	resp = env.do(t, http.MethodPatch, "/api/admin/entries/"+entry.ID, AdminUpdateRequest{
		CheckOut: &checkOut,
		Memo:     &memo,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Entry](t, resp)
	require.NotNil(t, updated.Minutes)
	assert.Equal(t, 510, *updated.Minutes)
	assert.Equal(t, "早退", updated.Memo)

	resp = env.do(t, http.MethodPatch, "/api/admin/entries/missing", AdminUpdateRequest{Memo: &memo})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestExportCSV(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田", "鈴木"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/admin/entries/export.csv?month=2026-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Disposition"), "CREW_2026")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.HasPrefix(text, "\uFEFF"))
	assert.Contains(t, text, "日付,ホール,役割,メンバー,人数,開始,退勤,ステータス,メモ\r\n")
	assert.Contains(t, text, "山田、鈴木")
}

func TestExportXLSX(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallB/LIGHTING/checkin",
		CheckInRequest{Names: []string{"佐藤"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/admin/entries/export.xlsx?month=2026-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("2026年3月")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ホールB", rows[1][1])
}

func TestSheetsSync(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/admin/sheets/sync?month=2026-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, "2026年3月", env.syncer.month)
	assert.Equal(t, 1, env.syncer.rows)
}

func TestMembersEndpoint(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, http.MethodGet, "/api/members?role=AUDIO", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	roster := decode[[]model.Member](t, resp)
	assert.Empty(t, roster)

	resp = env.do(t, http.MethodPost, "/api/kiosk/HallA/AUDIO/checkin",
		CheckInRequest{Names: []string{"山田"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/members?role=AUDIO", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	roster = decode[[]model.Member](t, resp)
	require.Len(t, roster, 1)
	assert.Equal(t, "山田", roster[0].Name)

	resp = env.do(t, http.MethodGet, "/api/members?role=STAGE", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
