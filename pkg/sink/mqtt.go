package sink

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/NotCoffee418/smartmeter_datacollector/pkg/config"
	"github.com/NotCoffee418/smartmeter_datacollector/pkg/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	mqttDefaultPort    = 1883
	mqttDefaultTLSPort = 8883
	mqttTimeout        = 3 * time.Second
)

func NewMqttSink(cfg config.SinkConfig, name string, log zerolog.Logger) (*MqttSink, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mqtt sink needs a host")
	}
	port := cfg.Port
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		if port == 0 {
			port = mqttDefaultTLSPort
		}
	} else if port == 0 {
		port = mqttDefaultPort
	}

	s := &MqttSink{
		name:     name,
		broker:   fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port),
		clientID: "smartmeter-" + uuid.NewString()[:8],
		username: cfg.Username,
		password: cfg.Password,
		log:      log,
	}
	if cfg.TLS {
		s.tlsOpts = &tlsSettings{
			caFilePath:     cfg.CAFilePath,
			checkHostname:  cfg.CheckHostname,
			clientCertPath: cfg.ClientCertPath,
			clientKeyPath:  cfg.ClientKeyPath,
		}
	}
	return s, nil
}

func (s *MqttSink) Name() string { return s.name }

// Start connects to the broker. A broker that is down is not fatal,
// the client keeps retrying in the background.
func (s *MqttSink) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.broker)
	opts.SetClientID(s.clientID)
	opts.SetCleanSession(true)
	opts.SetProtocolVersion(4)
	if s.username != "" {
		opts.SetUsername(s.username)
		opts.SetPassword(s.password)
	}
	if s.tlsOpts != nil {
		tlsConfig, err := s.tlsOpts.build()
		if err != nil {
			return err
		}
		opts.SetTLSConfig(tlsConfig)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(mqttTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn().Err(err).Str("broker", s.broker).Msg("Lost connection to MQTT broker")
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.log.Info().Str("broker", s.broker).Msg("Connected to MQTT broker")
	})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		s.log.Warn().Str("broker", s.broker).Msg("MQTT broker not reachable yet, retrying in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", s.broker, err)
	}
	return nil
}

func (s *MqttSink) Stop(ctx context.Context) error {
	if s.client != nil {
		s.client.Disconnect(500)
		s.log.Info().Msg("Disconnected from MQTT broker")
	}
	return nil
}

func (s *MqttSink) Send(m types.Measurement) error {
	if s.client == nil {
		return fmt.Errorf("mqtt sink %s not started", s.name)
	}
	payload, err := mqttPayloadFor(m)
	if err != nil {
		return err
	}
	topic := mqttTopicFor(m)
	token := s.client.Publish(topic, 0, false, payload)
	if token.WaitTimeout(mqttTimeout) && token.Error() != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, token.Error())
	}
	s.log.Debug().Str("topic", topic).RawJSON("payload", payload).Msg("Sent to MQTT broker")
	return nil
}

func mqttTopicFor(m types.Measurement) string {
	return fmt.Sprintf("smartmeter/%s/%s", m.Source, m.Type.Identifier)
}

func mqttPayloadFor(m types.Measurement) ([]byte, error) {
	return json.Marshal(mqttPayload{Value: m.Value, Timestamp: m.Timestamp.Unix()})
}

func (t *tlsSettings) build() (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if t.caFilePath != "" {
		pem, err := os.ReadFile(t.caFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", t.caFilePath)
		}
		tlsConfig.RootCAs = pool
	}

	if t.clientCertPath != "" || t.clientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(t.clientCertPath, t.clientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if !t.checkHostname {
		// Chain is still verified, only the host name check is skipped.
		roots := tlsConfig.RootCAs
		tlsConfig.InsecureSkipVerify = true
		tlsConfig.VerifyConnection = func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return fmt.Errorf("broker sent no certificate")
			}
			opts := x509.VerifyOptions{Roots: roots, Intermediates: x509.NewCertPool()}
			for _, cert := range cs.PeerCertificates[1:] {
				opts.Intermediates.AddCert(cert)
			}
			_, err := cs.PeerCertificates[0].Verify(opts)
			return err
		}
	}
	return tlsConfig, nil
}
