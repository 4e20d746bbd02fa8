package presence

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/fernwey/atlas-travel-agent/internal/buildinfo"
	"github.com/fernwey/atlas-travel-agent/internal/config"
	"github.com/fernwey/atlas-travel-agent/internal/events"
)

// Publisher manages the MQTT connection, publishes HA discovery config
// messages on (re-)connect, and runs a periodic loop that pushes sensor
// states to the broker. All methods are safe on a nil receiver so
// callers can hold an optional Publisher without guard checks.
type Publisher struct {
	cfg        config.MQTTConfig
	instanceID string
	device     DeviceInfo
	bus        *events.Bus
	logger     *slog.Logger
	cm         *autopaho.ConnectionManager

	started     time.Time
	activeConns atomic.Int64
	plansToday  *dailyCounter
	lastRequest atomic.Value // time.Time
}

// New creates a Publisher but does not connect. Call [Publisher.Start]
// to begin the connection and publish loop.
func New(cfg config.MQTTConfig, instanceID string, bus *events.Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:        cfg,
		instanceID: instanceID,
		device:     NewDeviceInfo(instanceID, cfg.DeviceName),
		bus:        bus,
		logger:     logger,
		started:    time.Now(),
		plansToday: newDailyCounter(time.Local),
	}
}

// Start connects to the MQTT broker, begins consuming bus events, and
// runs the periodic publish loop. It blocks until ctx is cancelled. On
// every (re-)connect it publishes discovery configs and a birth message.
func (p *Publisher) Start(ctx context.Context) error {
	if p == nil {
		return nil
	}

	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	go p.consumeEvents(ctx)

	availTopic := p.availabilityTopic()

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected to broker", "broker", p.cfg.Broker)
			p.publishDiscovery(ctx, cm)
			p.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "atlas-" + p.cfg.DeviceName,
		},
	}

	// Enable TLS for mqtts:// or ssl:// schemes.
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	// Wait for the initial connection before starting the publish loop.
	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// autopaho keeps retrying in the background.
		p.logger.Warn("mqtt initial connection timed out, retrying in background", "error", err)
	}

	p.runLoop(ctx)
	return nil
}

// Stop gracefully disconnects, publishing "offline" availability before
// closing the connection. The context bounds the publish and disconnect.
func (p *Publisher) Stop(ctx context.Context) error {
	if p == nil || p.cm == nil {
		return nil
	}
	p.publishAvailability(ctx, p.cm, "offline")
	return p.cm.Disconnect(ctx)
}

// AwaitConnection blocks until the broker connection is established or
// ctx expires. Used by health probes.
func (p *Publisher) AwaitConnection(ctx context.Context) error {
	if p == nil || p.cm == nil {
		return fmt.Errorf("presence publisher not started")
	}
	return p.cm.AwaitConnection(ctx)
}

// --- Event consumption ---

// consumeEvents folds bus events into the sensor counters until ctx is
// cancelled.
func (p *Publisher) consumeEvents(ctx context.Context) {
	if p.bus == nil {
		return
	}
	ch := p.bus.Subscribe(64)
	defer p.bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			p.observe(ev)
		}
	}
}

// observe updates counters for one event. Kinds are distinct across
// sources, so the switch does not need the source.
func (p *Publisher) observe(ev events.Event) {
	switch ev.Kind {
	case events.KindConnect:
		p.activeConns.Add(1)
	case events.KindDisconnect:
		p.activeConns.Add(-1)
	case events.KindPlanBuilt:
		p.plansToday.Inc()
	case events.KindRequestComplete:
		p.lastRequest.Store(ev.Timestamp)
	}
}

// active returns the connection gauge clamped at zero. A disconnect
// for a connection opened before the subscription would otherwise push
// it negative.
func (p *Publisher) active() int64 {
	if n := p.activeConns.Load(); n > 0 {
		return n
	}
	return 0
}

// --- Topic helpers ---

func (p *Publisher) baseTopic() string {
	return "atlas/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) stateTopic(entity string) string {
	return p.baseTopic() + "/" + entity + "/state"
}

func (p *Publisher) discoveryTopic(component, entity string) string {
	return p.cfg.DiscoveryPrefix + "/" + component + "/" + p.cfg.DeviceName + "/" + entity + "/config"
}

// --- Discovery ---

type sensorDef struct {
	entitySuffix string
	config       SensorConfig
}

func (p *Publisher) sensorDefinitions() []sensorDef {
	avail := p.availabilityTopic()

	base := func(suffix, name string) SensorConfig {
		return SensorConfig{
			Name:              name,
			ObjectID:          suffix,
			HasEntityName:     true,
			UniqueID:          p.instanceID + "_" + suffix,
			StateTopic:        p.stateTopic(suffix),
			AvailabilityTopic: avail,
			Device:            p.device,
		}
	}

	uptime := base("uptime", "Uptime")
	uptime.Icon = "mdi:clock-outline"
	uptime.EntityCategory = "diagnostic"

	version := base("version", "Version")
	version.Icon = "mdi:tag"
	version.EntityCategory = "diagnostic"

	conns := base("active_connections", "Active Connections")
	conns.Icon = "mdi:chat-processing"
	conns.StateClass = "measurement"

	plans := base("plans_today", "Plans Today")
	plans.Icon = "mdi:map-marker-path"
	plans.StateClass = "total_increasing"
	plans.UnitOfMeasurement = "plans"

	lastReq := base("last_request", "Last Request")
	lastReq.Icon = "mdi:clock-check"
	lastReq.EntityCategory = "diagnostic"

	return []sensorDef{
		{entitySuffix: "uptime", config: uptime},
		{entitySuffix: "version", config: version},
		{entitySuffix: "active_connections", config: conns},
		{entitySuffix: "plans_today", config: plans},
		{entitySuffix: "last_request", config: lastReq},
	}
}

func (p *Publisher) publishDiscovery(ctx context.Context, cm *autopaho.ConnectionManager) {
	for _, s := range p.sensorDefinitions() {
		topic := p.discoveryTopic("sensor", s.entitySuffix)
		payload, err := json.Marshal(s.config)
		if err != nil {
			p.logger.Error("mqtt marshal discovery payload",
				"entity", s.entitySuffix, "error", err)
			continue
		}

		if _, err := cm.Publish(ctx, &paho.Publish{
			Topic:   topic,
			Payload: payload,
			QoS:     1,
			Retain:  true,
		}); err != nil {
			p.logger.Warn("mqtt discovery publish failed",
				"entity", s.entitySuffix, "topic", topic, "error", err)
		} else {
			p.logger.Debug("mqtt discovery published",
				"entity", s.entitySuffix, "topic", topic)
		}
	}
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt availability publish failed",
			"status", status, "error", err)
	} else {
		p.logger.Info("mqtt availability published", "status", status)
	}
}

// --- Periodic state loop ---

func (p *Publisher) runLoop(ctx context.Context) {
	interval := time.Duration(p.cfg.PublishIntervalSec) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Publish immediately on start.
	p.publishStates(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishStates(ctx)
		}
	}
}

// currentStates assembles the sensor state values from the counters.
func (p *Publisher) currentStates() map[string]string {
	states := map[string]string{
		"uptime":             time.Since(p.started).Truncate(time.Second).String(),
		"version":            buildinfo.Version,
		"active_connections": strconv.FormatInt(p.active(), 10),
		"plans_today":        strconv.FormatInt(p.plansToday.Today(), 10),
	}

	last, _ := p.lastRequest.Load().(time.Time)
	if !last.IsZero() {
		states["last_request"] = last.Format(time.RFC3339)
	} else {
		states["last_request"] = "never"
	}

	return states
}

func (p *Publisher) publishStates(ctx context.Context) {
	if p.cm == nil {
		return
	}

	states := p.currentStates()
	for entity, value := range states {
		if _, err := p.cm.Publish(ctx, &paho.Publish{
			Topic:   p.stateTopic(entity),
			Payload: []byte(value),
			QoS:     0,
			Retain:  true,
		}); err != nil {
			p.logger.Debug("mqtt state publish failed",
				"entity", entity, "error", err)
		}
	}

	p.logger.Debug("mqtt sensor states published",
		"entities", len(states))
}
