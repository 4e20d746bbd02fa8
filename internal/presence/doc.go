// Package presence publishes Atlas to Home Assistant over MQTT: retained
// discovery configs so Atlas appears as a native HA device, an
// availability topic with a will message, and periodic sensor states
// (uptime, version, active connections, plans built today, last request).
//
// Counters are fed by the event bus rather than polled from the server.
// The publisher subscribes once at start and folds connect, disconnect,
// plan, and request events into its gauges.
//
// Connection management uses Eclipse Paho v2's [autopaho] package with
// automatic reconnection. On every (re-)connect the publisher sends
// retained discovery payloads and a birth message ("online"); the will
// message flips the availability topic to "offline" on unexpected
// disconnects, and Stop publishes "offline" on clean shutdown.
package presence
