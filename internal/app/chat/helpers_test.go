package chat

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"rainchat/internal/configs"
)

// testConfig returns a config with the documented defaults, safe to tweak per test.
func testConfig() *configs.AppConfig {
	return &configs.AppConfig{
		Environment:           "test",
		Port:                  8080,
		WSPath:                "/ws",
		Rooms:                 []string{"general", "highroller"},
		DefaultRoom:           "general",
		HistoryCap:            1000,
		HistoryCompactTo:      500,
		ReplayLimit:           20,
		RainThreshold:         100,
		AutoRainThreshold:     50,
		RainMinimum:           5,
		MaxRainWinners:        10,
		RecencyWindow:         5 * time.Minute,
		HourlyContributionCap: 20,
		BotUsername:           "RainBot",
		BotBalance:            1_000_000_000,
		RainCheckMinute:       30,
		StatsInterval:         time.Minute,
		CompactInterval:       time.Minute,
		AutoRainInterval:      time.Minute,
		ShutdownGrace:         10 * time.Millisecond,
	}
}

// newTestHub builds a hub whose handlers are invoked directly by the test
// goroutine. That mirrors production serialization: everything runs on one
// goroutine either way.
func newTestHub(cfg *configs.AppConfig) *Hub {
	return NewHub(cfg, nil, nil)
}

// connect admits a connectionless session, as the gateway would after an upgrade.
func connect(t *testing.T, h *Hub) *Session {
	t.Helper()

	s := NewSession(h, nil)
	h.addSession(s)
	drainEvents(t, s) // welcome
	return s
}

// authAs connects and authenticates a session in one step.
func authAs(t *testing.T, h *Hub, id, username string, balance int64) *Session {
	t.Helper()

	s := connect(t, h)
	h.route(s, authFrame(id, username, balance))
	drainEvents(t, s) // authSuccess, userCount, rainPool, replay
	return s
}

func authFrame(id, username string, balance int64) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"auth","user":{"id":%q,"username":%q,"balance":%d}}`,
		id, username, balance,
	))
}

func chatFrame(body string) []byte {
	return []byte(fmt.Sprintf(`{"type":"message","message":%q}`, body))
}

func tipFrame(target string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{"type":"tip","target":%q,"amount":%d}`, target, amount))
}

func rainFrame(amount int64) []byte {
	return []byte(fmt.Sprintf(`{"type":"rain","amount":%d}`, amount))
}

// unlimited removes the per-session chat rate cap for message-heavy tests.
func unlimited(s *Session) *Session {
	s.msgLimiter = rate.NewLimiter(rate.Inf, 1)
	return s
}

// drainEvents decodes every queued outbound frame for the session.
func drainEvents(t *testing.T, s *Session) []map[string]any {
	t.Helper()

	var out []map[string]any
	for {
		select {
		case frame := <-s.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(frame, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

// eventTypes lists the type discriminators of the drained events in order.
func eventTypes(events []map[string]any) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, fmt.Sprint(e["type"]))
	}
	return types
}

// findEvent returns the first drained event of the given type, or nil.
func findEvent(events []map[string]any, eventType string) map[string]any {
	for _, e := range events {
		if e["type"] == eventType {
			return e
		}
	}
	return nil
}

// countEvents counts drained events of the given type.
func countEvents(events []map[string]any, eventType string) int {
	n := 0
	for _, e := range events {
		if e["type"] == eventType {
			n++
		}
	}
	return n
}
