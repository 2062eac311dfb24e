package httpd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/modules"
	"github.com/firstpersontravel/charter-sub005/service"
	"github.com/firstpersontravel/charter-sub005/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = `{
  "roles": [{"name": "Traveler"}, {"name": "Guide"}],
  "cues": [{"name": "GO"}],
  "triggers": [
    {
      "name": "go",
      "event": {"type": "cue_signaled", "cue": "GO"},
      "actions": [
        {"name": "set_value", "value_ref": "going", "new_value_ref": true},
        {"name": "signal_cue", "cue_name": "LATER", "offset": "5m"}
      ]
    }
  ]
}`

func newRouter(t *testing.T) (*gin.Engine, *service.Service) {
	gin.SetMode(gin.TestMode)

	c, err := core.ParseScript([]byte(script))
	require.NoError(t, err)

	svc := service.New(store.NewMemory(), modules.MustRegistry())
	svc.Clock = func() time.Time { return time.Date(2017, 2, 16, 20, 0, 0, 0, time.UTC) }
	svc.Metrics, err = service.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, svc.AddScript("demo", c))
	return NewRouter(svc), svc
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body == "" {
		rd = &bytes.Buffer{}
	} else {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTrips(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, "GET", "/trips/t1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, "PUT", "/trips/t1", `{"scriptName":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, "PUT", "/trips/t1", `{"scriptName":"demo","players":[{"id":"p1","roleName":"Traveler"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, "GET", "/trips", "")
	require.Equal(t, http.StatusOK, w.Code)
	var trips []*core.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trips))
	require.Len(t, trips, 1)
	assert.Equal(t, "t1", trips[0].ID)

	w = do(t, r, "POST", "/trips/t1/events", `{"event":{"type":"cue_signaled","cue":"GO"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Ops       []map[string]interface{} `json:"ops"`
		Scheduled []*core.ScheduledAction  `json:"scheduled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Ops, 2)
	assert.Equal(t, "updateTripValues", resp.Ops[1]["operation"])
	require.Len(t, resp.Scheduled, 1)

	w = do(t, r, "GET", "/trips/t1/scheduled", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sas []*core.ScheduledAction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sas))
	require.Len(t, sas, 1)
	assert.Equal(t, "signal_cue", sas[0].Name)

	w = do(t, r, "GET", "/trips/t1", "")
	var trip core.Trip
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trip))
	assert.Equal(t, true, trip.Values["going"])

	w = do(t, r, "POST", "/trips/t1/events", `{"event":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, "POST", "/trips/t1/actions", `{"name":"teleport"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, "POST", "/trips/t1/actions", `{"name":"set_value","params":{"value_ref":"x","new_value_ref":2}}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, "POST", "/trips/t1/players/p9/location", `{"latitude":1,"longitude":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, "POST", "/trips/t1/players/p1/location", `{"latitude":1,"longitude":2}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "charter_result_ops_total")
}

func TestStream(t *testing.T) {
	r, svc := newRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx := context.Background()
	require.NoError(t, svc.Store.PutTrip(ctx, &core.Trip{ID: "t1", ScriptName: "demo"}))
	require.NoError(t, svc.Store.PutTrip(ctx, &core.Trip{ID: "t2", ScriptName: "demo"}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?trip=t2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	cue := core.Params{"type": "cue_signaled", "cue": "GO"}
	_, err = svc.Dispatch(ctx, "t1", cue, "")
	require.NoError(t, err)
	_, err = svc.Dispatch(ctx, "t2", cue, "")
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var p struct {
		TripID string                   `json:"tripId"`
		Ops    []map[string]interface{} `json:"ops"`
	}
	require.NoError(t, conn.ReadJSON(&p))
	assert.Equal(t, "t2", p.TripID)
	assert.Len(t, p.Ops, 2)
}
