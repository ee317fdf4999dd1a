// Package mqttpub publishes matched spell names to the configured MQTT
// broker. Publishing is best effort, QoS 0, never retained: when the client
// is not connected the event is dropped, never queued. Reconnection runs on
// the network context with the shared exponential backoff policy.
package mqttpub

import (
	"context"
	"fmt"
	"net"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/FutilityDesigns/Glyph-Reader/internal/backoff"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
)

const connectTimeout = 10 * time.Second

// Config holds the broker settings read from preferences.
type Config struct {
	Host  string
	Port  int
	Topic string
}

// Configured reports whether a broker host is set.
func (c Config) Configured() bool { return c.Host != "" }

// Client wraps the paho client with the device's drop-when-disconnected
// semantics.
type Client struct {
	cfg    Config
	client mqtt.Client
}

// ClientID derives the device identity from the primary interface MAC:
// "GlyphReader-XXXXXX" with the final three MAC bytes in hex. Falls back to
// a random UUID suffix on hosts with no readable hardware address (dev
// runs, containers).
func ClientID() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, ifc := range ifaces {
			hw := ifc.HardwareAddr
			if ifc.Flags&net.FlagLoopback != 0 || len(hw) < 6 {
				continue
			}
			return fmt.Sprintf("GlyphReader-%02X%02X%02X", hw[3], hw[4], hw[5])
		}
	}
	return "GlyphReader-" + uuid.NewString()[:6]
}

// New builds a client for the given broker config. No connection is made
// until Maintain runs.
func New(cfg Config) *Client {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(ClientID()).
		SetAutoReconnect(false). // reconnect policy is ours, not paho's
		SetConnectTimeout(connectTimeout)
	return &Client{cfg: cfg, client: mqtt.NewClient(opts)}
}

// Connected reports whether the broker connection is up.
func (c *Client) Connected() bool {
	return c != nil && c.client.IsConnected()
}

// Publish sends the spell name as a UTF-8 payload, QoS 0, retain false.
// Dropped silently when not connected.
func (c *Client) Publish(spell string) {
	if !c.Connected() {
		monitoring.Debugf("mqtt not connected, dropping %q", spell)
		return
	}
	if c.cfg.Topic == "" {
		return
	}
	c.client.Publish(c.cfg.Topic, 0, false, []byte(spell))
	monitoring.Logf("published spell %q to %s", spell, c.cfg.Topic)
}

// connect attempts a single broker connection.
func (c *Client) connect() error {
	tok := c.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s:%d timed out", c.cfg.Host, c.cfg.Port)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("connect to %s:%d: %w", c.cfg.Host, c.cfg.Port, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	if c != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

// Maintain keeps the connection alive until ctx is cancelled, retrying with
// exponential backoff and resetting the interval after each success. Runs
// on the network context.
func (c *Client) Maintain(ctx context.Context) {
	if !c.cfg.Configured() {
		monitoring.Logf("mqtt disabled: no broker configured")
		return
	}
	bo := backoff.NewDefault()
	for {
		if !c.Connected() {
			if err := c.connect(); err != nil {
				monitoring.Logf("mqtt: %v (retry in %s)", err, bo.Next())
				select {
				case <-time.After(bo.Next()):
				case <-ctx.Done():
					return
				}
				bo.Failure()
				continue
			}
			monitoring.Logf("mqtt connected to %s:%d", c.cfg.Host, c.cfg.Port)
			bo.Success()
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			c.Close()
			return
		}
	}
}
