package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Raimguhinov/alarm-go/internal/alarm"
	delivery "github.com/Raimguhinov/alarm-go/internal/delivery/http"
	"github.com/Raimguhinov/alarm-go/internal/metrics"
	"github.com/Raimguhinov/alarm-go/internal/scheduler"
	"github.com/Raimguhinov/alarm-go/internal/storage/memory"
	"github.com/Raimguhinov/alarm-go/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	mu    sync.Mutex
	armed map[uuid.UUID]time.Time
}

func (f *fakeTimer) ArmOnce(id uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[id] = at
}

func (f *fakeTimer) Cancel(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.armed, id)
}

type noopPresenter struct{}

func (noopPresenter) Show(uuid.UUID, string, string) {}

func newServer(t *testing.T) (*httptest.Server, *memory.Repository, *fakeTimer) {
	t.Helper()

	store := memory.New()
	tm := &fakeTimer{armed: map[uuid.UUID]time.Time{}}
	l := logger.New("error", "local")
	sched := scheduler.New(store, tm, noopPresenter{}, l, metrics.New(prometheus.NewRegistry()))

	r := chi.NewRouter()
	delivery.NewHandler(sched, store, l).Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, tm
}

func postAlarm(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(srv.URL+"/alarms", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateAlarm(t *testing.T) {
	srv, store, tm := newServer(t)

	resp := postAlarm(t, srv, `{
		"title": "wake up",
		"message": "school day",
		"hour": 7,
		"minute": 30,
		"repeat": [false, true, true, true, true, true, false],
		"enabled": true
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created alarm.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "wake up", created.Title)

	stored, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)

	tm.mu.Lock()
	_, armed := tm.armed[created.ID]
	tm.mu.Unlock()
	assert.True(t, armed)
}

func TestCreateAlarm_InvalidConfig(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postAlarm(t, srv, `{
		"title": "broken",
		"hour": 7,
		"repeat": [false, false, false, false, false, false, false],
		"enabled": true
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateAlarm_BadMaskLength(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postAlarm(t, srv, `{
		"title": "broken",
		"hour": 7,
		"minute": 0,
		"repeat": [true, false],
		"enabled": true
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAlarm_NotFound(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/alarms/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAlarm_NotFound(t *testing.T) {
	srv, _, _ := newServer(t)

	body := bytes.NewBufferString(`{"title":"a","hour":6,"minute":0,"repeat":[true,false,false,false,false,false,false],"enabled":true}`)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/alarms/"+uuid.NewString(), body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAlarm_BadID(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/alarms/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAlarms(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/alarms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var alarms []alarm.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&alarms))
	assert.Empty(t, alarms)

	postAlarm(t, srv, `{"title":"a","hour":6,"minute":0,"repeat":[true,false,false,false,false,false,false],"enabled":true}`)
	postAlarm(t, srv, `{"title":"b","hour":7,"minute":0,"repeat":[false,true,false,false,false,false,false],"enabled":true}`)

	resp2, err := http.Get(srv.URL + "/alarms")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&alarms))
	assert.Len(t, alarms, 2)
}

func TestUpdateAlarm_DisableCancelsTimer(t *testing.T) {
	srv, _, tm := newServer(t)

	resp := postAlarm(t, srv, `{"title":"a","hour":6,"minute":0,"repeat":[true,false,false,false,false,false,false],"enabled":true}`)
	var created alarm.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	body := bytes.NewBufferString(`{"title":"a","hour":6,"minute":0,"repeat":[true,false,false,false,false,false,false],"enabled":false}`)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/alarms/"+created.ID.String(), body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	tm.mu.Lock()
	_, armed := tm.armed[created.ID]
	tm.mu.Unlock()
	assert.False(t, armed)
}

func TestDeleteAlarm(t *testing.T) {
	srv, store, tm := newServer(t)

	resp := postAlarm(t, srv, `{"title":"a","hour":6,"minute":0,"repeat":[true,false,false,false,false,false,false],"enabled":true}`)
	var created alarm.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/alarms/"+created.ID.String(), nil)
	require.NoError(t, err)

	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusNoContent, resp2.StatusCode)

	_, err = store.Get(context.Background(), created.ID)
	require.ErrorIs(t, err, alarm.ErrNotFound)

	tm.mu.Lock()
	_, armed := tm.armed[created.ID]
	tm.mu.Unlock()
	assert.False(t, armed)
}

func TestNextTriggerEndpoint(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postAlarm(t, srv, `{"title":"a","hour":6,"minute":0,"repeat":[true,true,true,true,true,true,true],"enabled":true}`)
	var created alarm.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp2, err := http.Get(srv.URL + "/alarms/" + created.ID.String() + "/next")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var next struct {
		ID        uuid.UUID  `json:"id"`
		NextAt    *time.Time `json:"next_at"`
		Scheduled bool       `json:"scheduled"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&next))
	assert.True(t, next.Scheduled)
	require.NotNil(t, next.NextAt)
	assert.True(t, next.NextAt.After(time.Now()))
	assert.Equal(t, 6, next.NextAt.Hour())
	assert.Zero(t, next.NextAt.Minute())
}

func TestICSExport(t *testing.T) {
	srv, _, _ := newServer(t)

	resp := postAlarm(t, srv, `{"title":"gym","message":"leg day","hour":18,"minute":0,"repeat":[false,true,false,true,false,true,false],"enabled":true}`)
	var created alarm.Alarm
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp2, err := http.Get(srv.URL + "/alarms/" + created.ID.String() + "/ics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Contains(t, resp2.Header.Get("Content-Type"), "text/calendar")

	var body bytes.Buffer
	_, err = body.ReadFrom(resp2.Body)
	require.NoError(t, err)
	ics := body.String()
	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "BEGIN:VEVENT")
	assert.Contains(t, ics, "RRULE")
	assert.Contains(t, ics, created.ID.String())
}
