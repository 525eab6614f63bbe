package interpreter

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/sink"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenerURL(t *testing.T) {
	assert.Equal(t, "ws://raspberrypi.local:9039/ws", ListenerURL("raspberrypi.local:9039", false))
	assert.Equal(t, "wss://meter.example.com/ws", ListenerURL("meter.example.com", true))
}

func TestStartListenerReceivesMeasurements(t *testing.T) {
	live := sink.NewWebsocketSink("127.0.0.1", 0, "websocket", zerolog.Nop())
	srv := httptest.NewServer(live.Handler())
	defer srv.Close()

	ts := time.Date(2024, 3, 21, 20, 10, 29, 0, time.UTC)
	require.NoError(t, live.Send(types.Measurement{Type: types.ActivePowerP, Value: 386, Source: "110002267", Timestamp: ts}))

	received := make(chan *types.Measurement, 10)
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- StartListener(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", func(m *types.Measurement) {
			received <- m
		}, zerolog.Nop())
	}()

	select {
	case m := <-received:
		assert.Equal(t, types.ActivePowerP, m.Type)
		assert.Equal(t, 386.0, m.Value)
		assert.Equal(t, "110002267", m.Source)
		assert.True(t, ts.Equal(m.Timestamp))
	case <-time.After(5 * time.Second):
		t.Fatal("no measurement received")
	}

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestStartListenerStopsWhileRetrying(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := StartListener(ctx, url, func(*types.Measurement) {}, zerolog.Nop())
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
