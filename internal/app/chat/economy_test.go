package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rainchat/internal/pkg/errs"
)

func TestTipTransfersBalances(t *testing.T) {
	h := newTestHub(testConfig())
	alice := authAs(t, h, "u1", "alice", 50)
	bob := authAs(t, h, "u2", "bob", 10)
	drainEvents(t, alice) // bob's userJoin

	before := alice.user.Balance + bob.user.Balance

	h.route(alice, tipFrame("bob", 20))

	assert.Equal(t, int64(30), alice.user.Balance)
	assert.Equal(t, int64(30), bob.user.Balance)
	assert.Equal(t, before, alice.user.Balance+bob.user.Balance, "tip must conserve the balance sum")

	aliceEvents := drainEvents(t, alice)
	sent := findEvent(aliceEvents, "tipSent")
	require.NotNil(t, sent)
	assert.Equal(t, "bob", sent["to"])
	assert.Equal(t, float64(30), sent["newBalance"])

	bobEvents := drainEvents(t, bob)
	received := findEvent(bobEvents, "tipReceived")
	require.NotNil(t, received)
	assert.Equal(t, "alice", received["from"])
	assert.Equal(t, float64(30), received["newBalance"])

	// public tip event lands in the general room and its history
	public := findEvent(bobEvents, "tip")
	require.NotNil(t, public)
	assert.Equal(t, "alice", public["from"])
	assert.Equal(t, float64(20), public["amount"])

	general := h.rooms["general"]
	recent := general.history.recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, "tip", recent[0].Type)
}

func TestTipTargetMatchIsCaseInsensitive(t *testing.T) {
	h := newTestHub(testConfig())
	alice := authAs(t, h, "u1", "alice", 50)
	bob := authAs(t, h, "u2", "Bob", 0)

	h.route(alice, tipFrame("bOB", 5))

	assert.Equal(t, int64(45), alice.user.Balance)
	assert.Equal(t, int64(5), bob.user.Balance)
}

func TestTipValidation(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		amount   int64
		wantCode int
	}{
		{"negative amount", "bob", -5, errs.ErrInvalidAmount},
		{"zero amount", "bob", 0, errs.ErrInvalidAmount},
		{"insufficient balance", "bob", 100, errs.ErrInsufficientBalance},
		{"unknown target", "charlie", 10, errs.ErrTargetNotFound},
		{"self tip", "ALICE", 10, errs.ErrSelfTip},
		{"missing target", "", 10, errs.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(testConfig())
			alice := authAs(t, h, "u1", "alice", 50)
			bob := authAs(t, h, "u2", "bob", 10)
			drainEvents(t, alice)

			h.route(alice, tipFrame(tt.target, tt.amount))

			events := drainEvents(t, alice)
			errEvent := findEvent(events, "error")
			require.NotNil(t, errEvent, "expected an error envelope")
			assert.Equal(t, float64(tt.wantCode), errEvent["code"])

			assert.Equal(t, int64(50), alice.user.Balance, "failed tip must not touch balances")
			assert.Equal(t, int64(10), bob.user.Balance)
		})
	}
}

func TestTipToBotFillsPoolAndTriggersDistribution(t *testing.T) {
	h := newTestHub(testConfig())
	alice := authAs(t, h, "u1", "alice", 200)
	bob := authAs(t, h, "u2", "bob", 10)
	drainEvents(t, alice)

	h.economy.pool = 95

	h.route(alice, tipFrame("RainBot", 10))

	// pool crossed 100 and distribution fired for both active users:
	// payout = floor(105/2) = 52 each, remainder 1 stays in the pool.
	assert.Equal(t, int64(1), h.economy.PoolTotal())
	assert.Equal(t, int64(200-10+52), alice.user.Balance)
	assert.Equal(t, int64(10+52), bob.user.Balance)

	// both the private winner notice and the public summary use type "rain";
	// the summary is the one carrying the winner list
	var summary map[string]any
	for _, e := range drainEvents(t, bob) {
		if e["type"] == "rain" && e["winners"] != nil {
			summary = e
		}
	}
	require.NotNil(t, summary)
	assert.Equal(t, float64(104), summary["amount"])
	assert.Len(t, summary["winners"], 2)
}

func TestRainContributionCrossesThreshold(t *testing.T) {
	h := newTestHub(testConfig())
	alice := authAs(t, h, "u1", "alice", 50)
	bob := authAs(t, h, "u2", "bob", 50)
	drainEvents(t, alice)

	h.economy.pool = 95

	h.route(alice, rainFrame(10))

	events := drainEvents(t, alice)
	contributed := findEvent(events, "rainContributed")
	require.NotNil(t, contributed)
	assert.Equal(t, float64(105), contributed["rainPool"])
	assert.Equal(t, float64(40), contributed["newBalance"])

	// 105 crossed the 100 threshold: each of the two wins floor(105/2) = 52
	assert.Equal(t, int64(1), h.economy.PoolTotal())
	assert.Equal(t, int64(40+52), alice.user.Balance)
	assert.Equal(t, int64(50+52), bob.user.Balance)
}

func TestRainValidation(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		wantCode int
	}{
		{"zero amount", 0, errs.ErrInvalidAmount},
		{"negative amount", -1, errs.ErrInvalidAmount},
		{"over balance", 51, errs.ErrInvalidAmount},
		{"below minimum", 3, errs.ErrBelowMinimum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHub(testConfig())
			alice := authAs(t, h, "u1", "alice", 50)

			h.route(alice, rainFrame(tt.amount))

			events := drainEvents(t, alice)
			errEvent := findEvent(events, "error")
			require.NotNil(t, errEvent)
			assert.Equal(t, float64(tt.wantCode), errEvent["code"])
			assert.Equal(t, int64(50), alice.user.Balance)
			assert.Equal(t, int64(0), h.economy.PoolTotal())
		})
	}
}

func TestHourlyContributionCap(t *testing.T) {
	cfg := testConfig()
	cfg.HourlyContributionCap = 3
	h := newTestHub(cfg)
	alice := unlimited(authAs(t, h, "u1", "alice", 0))

	for i := 0; i < 5; i++ {
		h.route(alice, chatFrame("hello"))
	}

	assert.Equal(t, int64(3), h.economy.PoolTotal(), "only capped messages contribute")

	events := drainEvents(t, alice)
	assert.Equal(t, 3, countEvents(events, "rainContribution"))

	first := findEvent(events, "rainContribution")
	require.NotNil(t, first)
	assert.Equal(t, float64(1), first["contributionCount"])
}

func TestHourlyContributionResetsOnHourRollover(t *testing.T) {
	cfg := testConfig()
	cfg.HourlyContributionCap = 2
	h := newTestHub(cfg)

	base := time.Date(2026, 8, 31, 14, 50, 0, 0, time.UTC)
	h.now = func() time.Time { return base }

	alice := unlimited(authAs(t, h, "u1", "alice", 0))

	for i := 0; i < 4; i++ {
		h.route(alice, chatFrame("before"))
	}
	assert.Equal(t, int64(2), h.economy.PoolTotal())

	// next calendar hour: the counter key changes, contributions resume
	h.now = func() time.Time { return base.Add(time.Hour) }
	for i := 0; i < 4; i++ {
		h.route(alice, chatFrame("after"))
	}
	assert.Equal(t, int64(4), h.economy.PoolTotal())
}

func TestDistributionSkipsWhenNoCandidates(t *testing.T) {
	h := newTestHub(testConfig())
	alice := authAs(t, h, "u1", "alice", 0)

	alice.lastActivity = h.now().Add(-time.Hour)
	h.economy.pool = 150

	h.economy.CheckDistribution(h.cfg.RainThreshold)

	assert.Equal(t, int64(150), h.economy.PoolTotal(), "pool untouched with no eligible users")
	assert.Equal(t, int64(0), alice.user.Balance)
}

func TestDistributionHonorsRecencyWindow(t *testing.T) {
	h := newTestHub(testConfig())
	active := authAs(t, h, "u1", "alice", 0)
	stale := authAs(t, h, "u2", "bob", 0)

	stale.lastActivity = h.now().Add(-time.Hour)
	h.economy.pool = 100

	h.economy.CheckDistribution(h.cfg.RainThreshold)

	assert.Equal(t, int64(100), active.user.Balance)
	assert.Equal(t, int64(0), stale.user.Balance)
	assert.Equal(t, int64(0), h.economy.PoolTotal())
}

func TestDistributionCapsWinnersAndPaysDistinctUsers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRainWinners = 4
	h := newTestHub(cfg)

	sessions := make([]*Session, 0, 7)
	for i := 0; i < 7; i++ {
		sessions = append(sessions, authAs(t, h, string(rune('a'+i)), string(rune('a'+i))+"-user", 0))
	}

	h.economy.pool = 103
	h.economy.CheckDistribution(h.cfg.RainThreshold)

	// payout = floor(103/4) = 25; remainder 3 stays
	assert.Equal(t, int64(3), h.economy.PoolTotal())

	paid := 0
	var total int64
	for _, s := range sessions {
		if s.user.Balance > 0 {
			paid++
			total += s.user.Balance
			assert.Equal(t, int64(25), s.user.Balance, "every winner gets the same payout")
		}
	}
	assert.Equal(t, 4, paid, "winner count capped and no user paid twice")
	assert.Equal(t, int64(100), total)
}

func TestHourlyCheckAnnouncesShortfall(t *testing.T) {
	h := newTestHub(testConfig())
	alice := authAs(t, h, "u1", "alice", 0)

	h.economy.pool = 42
	h.economy.HourlyCheck()

	assert.Equal(t, int64(42), h.economy.PoolTotal(), "no distribution below threshold")

	events := drainEvents(t, alice)
	announcement := findEvent(events, "system")
	require.NotNil(t, announcement)
	assert.Contains(t, announcement["message"], "42/100")
}

func TestSweepHourlyDropsStaleCounters(t *testing.T) {
	h := newTestHub(testConfig())

	base := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return base }

	h.economy.hourly[hourlyKey("u1", base)] = 5
	h.economy.hourly[hourlyKey("u2", base.Add(-time.Hour))] = 3
	h.economy.hourly[hourlyKey("u3", base.Add(-48*time.Hour))] = 9

	h.economy.sweepHourly()

	assert.Len(t, h.economy.hourly, 1)
	assert.Equal(t, 5, h.economy.hourly[hourlyKey("u1", base)])
}
