package sink

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketSinkLatest(t *testing.T) {
	s := NewWebsocketSink("", 0, "websocket", zerolog.Nop())
	assert.Equal(t, "0.0.0.0:9039", s.address)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ts := time.Date(2024, 3, 21, 20, 10, 29, 0, time.UTC)
	require.NoError(t, s.Send(types.Measurement{Type: types.ActivePowerP, Value: 10, Source: "b", Timestamp: ts}))
	require.NoError(t, s.Send(types.Measurement{Type: types.ActivePowerP, Value: 20, Source: "a", Timestamp: ts}))
	require.NoError(t, s.Send(types.Measurement{Type: types.ActivePowerP, Value: 30, Source: "a", Timestamp: ts.Add(time.Second)}))

	resp, err = http.Get(srv.URL + "/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var latest []types.Measurement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	require.Len(t, latest, 2)
	assert.Equal(t, "a", latest[0].Source)
	assert.Equal(t, 30.0, latest[0].Value)
	assert.Equal(t, "b", latest[1].Source)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "running", status["status"])
}

func TestWebsocketSinkBroadcast(t *testing.T) {
	s := NewWebsocketSink("127.0.0.1", 0, "websocket", zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ts := time.Date(2024, 3, 21, 20, 10, 29, 0, time.UTC)
	require.NoError(t, s.Send(types.Measurement{Type: types.VoltageL1, Value: 230, Source: "m1", Timestamp: ts}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The snapshot arrives first.
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	snapshot := types.MeasurementFromJsonBytes(message)
	require.NotNil(t, snapshot)
	assert.Equal(t, types.VoltageL1, snapshot.Type)
	assert.True(t, ts.Equal(snapshot.Timestamp))

	require.NoError(t, s.Send(types.Measurement{Type: types.ActivePowerP, Value: 386, Source: "m1", Timestamp: ts}))
	_, message, err = conn.ReadMessage()
	require.NoError(t, err)
	live := types.MeasurementFromJsonBytes(message)
	require.NotNil(t, live)
	assert.Equal(t, types.ActivePowerP, live.Type)
	assert.Equal(t, 386.0, live.Value)
}

func TestWebsocketSinkStartStop(t *testing.T) {
	s := NewWebsocketSink("127.0.0.1", 0, "websocket", zerolog.Nop())
	// Any free port
	s.address = "127.0.0.1:0"
	require.NoError(t, s.Start(t.Context()))
	require.NoError(t, s.Stop(t.Context()))
}
