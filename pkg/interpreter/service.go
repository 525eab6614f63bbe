// Package interpreter consumes the live measurements a datacollector
// broadcasts on its /ws endpoint.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var ErrGaveUp = fmt.Errorf("gave up connecting to datacollector")

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
	// Expect a message at least this often, the meters push every few seconds
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// ListenerURL returns the websocket URL of a datacollector at host.
func ListenerURL(host string, tls bool) string {
	scheme := "ws"
	if tls {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/ws"}
	return u.String()
}

// StartListener manages the websocket connection and calls handle for each
// measurement. It reconnects with exponential backoff and returns nil once
// ctx is done, or ErrGaveUp after maxRetries failed attempts in a row.
func StartListener(ctx context.Context, wsURL string, handle func(m *types.Measurement), log zerolog.Logger) error {
	retryCount := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		// Calculate retry delay with exponential backoff
		retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}

		if retryCount > 0 {
			log.Info().Msgf("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil
			}
		}

		log.Info().Str("url", wsURL).Msg("Connecting to datacollector")

		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("Connection failed")
			retryCount++
			if retryCount >= maxRetries {
				return fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, maxRetries, err)
			}
			continue
		}

		log.Info().Msg("Connected! Accepting measurements.")
		retryCount = 0

		// Handle the connection until it breaks or we're cancelled
		connectionBroken := handleConnection(ctx, c, handle, log)
		c.Close()

		if !connectionBroken {
			return nil
		}
		log.Warn().Msg("Connection lost, will retry...")
	}
}

func handleConnection(ctx context.Context, c *websocket.Conn, handle func(m *types.Measurement), log zerolog.Logger) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(readTimeout))

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Msg("WebSocket error")
				} else {
					log.Info().Err(err).Msg("Connection closed")
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debug().Int("type", messageType).Msg("Ignoring non-text message")
				continue
			}
			if m := types.MeasurementFromJsonBytes(message); m != nil {
				handle(m)
			} else {
				log.Warn().Str("message", string(message)).Msg("Failed to parse measurement")
			}
		}
	}()

	// Keep the connection alive through proxies
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				log.Warn().Err(err).Msg("Failed to send ping")
			}
		case <-ctx.Done():
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				log.Debug().Err(err).Msg("Error sending close message")
			}
			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
