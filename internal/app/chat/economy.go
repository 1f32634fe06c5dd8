/*
This file defines the Economy struct: peer-to-peer tipping, rain-pool accumulation,
per-message micro-contributions with an hourly cap, and rain distribution to
recently active users. Every method here runs on the hub loop, so a tip's
debit+credit pair and every pool mutation are atomic with respect to each other.
*/
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rainchat/internal/app/balance"
	"rainchat/internal/app/user"
	"rainchat/internal/configs"
	"rainchat/internal/pkg/errs"
	"rainchat/internal/pkg/logx"
	"rainchat/internal/pkg/randx"
)

// BotUserID is the fixed id of the connectionless system pseudo-user.
const BotUserID = "bot"

// hourlyKeyLayout keys contribution counters by calendar date and hour, so the
// counter resets implicitly when the clock hour rolls over.
const hourlyKeyLayout = "2006-01-02|15"

// storeCommitTimeout bounds one async durable balance commit.
const storeCommitTimeout = 10 * time.Second

// Economy owns all shared economic state: the rain pool, hourly contribution
// counters, and the bot identity. Cached session balances are the operative
// truth; the balance store receives best-effort durable commits.
type Economy struct {
	cfg *configs.AppConfig
	hub *Hub

	// store is the external durable balance store, nil when not configured.
	store balance.Store

	bot user.User

	// pool is the rain pool total. Never negative.
	pool int64

	// hourly counts message-driven contributions keyed by userID|date|hour.
	hourly map[string]int

	logger zerolog.Logger
}

func newEconomy(cfg *configs.AppConfig, hub *Hub, store balance.Store) *Economy {
	return &Economy{
		cfg:   cfg,
		hub:   hub,
		store: store,
		bot: user.User{
			ID:       BotUserID,
			Username: cfg.BotUsername,
			Balance:  cfg.BotBalance,
			IsBot:    true,
		},
		hourly: make(map[string]int),
		logger: logx.Logger().With().Str("component", "Economy").Logger(),
	}
}

// PoolTotal returns the current rain pool total.
func (e *Economy) PoolTotal() int64 {
	return e.pool
}

// Bot returns the system pseudo-user identity.
func (e *Economy) Bot() user.User {
	return e.bot
}

// Tip transfers amount from the sender to the named target. Tipping the bot
// routes the amount into the rain pool instead. All validation failures are
// soft errors; nothing is debited unless the whole transfer applies.
func (e *Economy) Tip(s *Session, target string, amount int64) {
	if strings.TrimSpace(target) == "" {
		s.sendError(errs.NewError(errs.ErrMissingField, "target"))
		return
	}
	if amount <= 0 {
		s.sendError(errs.NewError(errs.ErrInvalidAmount))
		return
	}
	if amount > s.user.Balance {
		s.sendError(errs.NewError(errs.ErrInsufficientBalance))
		return
	}

	if strings.EqualFold(target, e.bot.Username) {
		e.tipBot(s, amount)
		return
	}

	tgt := e.hub.sessionByUsername(target)
	if tgt == nil {
		s.sendError(errs.NewError(errs.ErrTargetNotFound, target))
		return
	}
	if tgt == s {
		s.sendError(errs.NewError(errs.ErrSelfTip))
		return
	}

	s.user.Balance -= amount
	tgt.user.Balance += amount

	e.persist(s.user.ID, -amount, "tip_sent")
	e.persist(tgt.user.ID, amount, "tip_received")

	s.sendEvent(tipResultEvent{
		Type:       typeTipSent,
		To:         tgt.user.Username,
		Amount:     amount,
		NewBalance: s.user.Balance,
	})
	tgt.sendEvent(tipResultEvent{
		Type:       typeTipReceived,
		From:       s.user.Username,
		Amount:     amount,
		NewBalance: tgt.user.Balance,
	})

	publicTip := Message{
		Type:      typeTip,
		ID:        randx.MessageID(),
		From:      s.user.Username,
		To:        tgt.user.Username,
		Amount:    amount,
		Room:      e.cfg.DefaultRoom,
		Timestamp: e.hub.now().UnixMilli(),
	}
	if room, ok := e.hub.rooms[e.cfg.DefaultRoom]; ok {
		e.hub.appendHistory(room, publicTip)
	}
	e.hub.broadcastRoom(e.cfg.DefaultRoom, publicTip, nil)

	e.logger.Info().
		Str("from", s.user.ID).
		Str("to", tgt.user.ID).
		Int64("amount", amount).
		Msg("Tip applied.")
}

// tipBot moves a tip addressed to the bot into the rain pool and checks the
// distribution trigger.
func (e *Economy) tipBot(s *Session, amount int64) {
	s.user.Balance -= amount
	e.pool += amount

	e.persist(s.user.ID, -amount, "pool_tip")

	s.sendEvent(tipResultEvent{
		Type:       typeTipSent,
		To:         e.bot.Username,
		Amount:     amount,
		NewBalance: s.user.Balance,
	})

	e.announce(fmt.Sprintf("%s dropped %d coins into the rain pool! Pool is now %d.",
		s.user.Username, amount, e.pool))
	e.hub.broadcastAll(rainPoolEvent{Type: typeRainPool, Amount: e.pool}, nil)

	e.CheckDistribution(e.cfg.RainThreshold)
}

// Rain applies an explicit rain contribution from the session's balance.
func (e *Economy) Rain(s *Session, amount int64) {
	if amount <= 0 || amount > s.user.Balance {
		s.sendError(errs.NewError(errs.ErrInvalidAmount))
		return
	}
	if amount < e.cfg.RainMinimum {
		s.sendError(errs.NewError(errs.ErrBelowMinimum, e.cfg.RainMinimum))
		return
	}

	s.user.Balance -= amount
	e.pool += amount

	e.persist(s.user.ID, -amount, "rain_contribution")

	s.sendEvent(rainContributedEvent{
		Type:       typeRainContributed,
		Amount:     amount,
		NewBalance: s.user.Balance,
		RainPool:   e.pool,
	})

	e.announce(fmt.Sprintf("%s contributed %d coins to the rain pool! Pool is now %d.",
		s.user.Username, amount, e.pool))
	e.hub.broadcastAll(rainPoolEvent{Type: typeRainPool, Amount: e.pool}, nil)

	e.CheckDistribution(e.cfg.RainThreshold)
}

// RecordContribution counts one successfully broadcast chat message toward the
// sender's hourly micro-contributions. While under the cap, each message adds
// one coin to the pool and the contributor is told their running count.
func (e *Economy) RecordContribution(s *Session) {
	if s.state != stateAuthenticated || s.user.IsBot {
		return
	}

	key := hourlyKey(s.user.ID, e.hub.now())
	if e.hourly[key] >= e.cfg.HourlyContributionCap {
		return
	}

	e.hourly[key]++
	e.pool++

	count := e.hourly[key]
	s.sendEvent(rainContributionEvent{
		Type:              typeRainContribution,
		ContributionCount: count,
		Message: fmt.Sprintf("Your message added 1 coin to the rain pool (%d/%d this hour).",
			count, e.cfg.HourlyContributionCap),
	})

	e.CheckDistribution(e.cfg.RainThreshold)
}

// CheckDistribution fires a distribution when the pool has reached trigger.
func (e *Economy) CheckDistribution(trigger int64) {
	if e.pool >= trigger {
		e.distribute()
	}
}

// HourlyCheck is the minute-anchored scheduled check: distribute when the pool
// is over threshold, otherwise announce the shortfall.
func (e *Economy) HourlyCheck() {
	if e.pool >= e.cfg.RainThreshold {
		e.announce("It's time for the hourly rain!")
		e.distribute()
		return
	}

	e.announce(fmt.Sprintf("Rain pool at %d/%d. Keep chatting to fill it up!",
		e.pool, e.cfg.RainThreshold))
}

// distribute pays the pool out to up to MaxRainWinners sessions active within
// the recency window. Winners are drawn uniformly without replacement; each is
// credited floor(pool/winners) and the integer remainder stays in the pool.
func (e *Economy) distribute() {
	cutoff := e.hub.now().Add(-e.cfg.RecencyWindow)

	var candidates []*Session
	for _, s := range e.hub.sessions {
		if s.state != stateAuthenticated || s.user.IsBot {
			continue
		}
		if s.lastActivity.Before(cutoff) {
			continue
		}
		candidates = append(candidates, s)
	}

	if len(candidates) == 0 {
		e.logger.Info().Int64("pool", e.pool).Msg("Rain distribution skipped: no eligible users.")
		return
	}

	picked, err := randx.SampleIndexes(len(candidates), e.cfg.MaxRainWinners)
	if err != nil {
		e.logger.Error().Err(err).Msg("Rain distribution aborted: winner sampling failed.")
		return
	}

	winnerCount := int64(len(picked))
	payout := e.pool / winnerCount
	if payout == 0 {
		e.logger.Info().
			Int64("pool", e.pool).
			Int64("winners", winnerCount).
			Msg("Rain distribution skipped: pool too small to split.")
		return
	}

	distributed := payout * winnerCount
	e.pool -= distributed

	timestamp := e.hub.now().UnixMilli()
	winners := make([]string, 0, len(picked))

	for _, idx := range picked {
		w := candidates[idx]
		w.user.Balance += payout
		winners = append(winners, w.user.Username)

		e.persist(w.user.ID, payout, "rain_payout")

		notice := NewMessage(typeRain, e.bot, "",
			fmt.Sprintf("You caught %d coins from the rain!", payout), timestamp)
		notice.Amount = payout
		w.sendEvent(notice)
	}

	summary := NewMessage(typeRain, e.bot, e.cfg.DefaultRoom,
		fmt.Sprintf("It rained %d coins on %d lucky users!", distributed, len(winners)), timestamp)
	summary.Amount = distributed
	summary.Winners = winners

	if room, ok := e.hub.rooms[e.cfg.DefaultRoom]; ok {
		e.hub.appendHistory(room, summary)
	}
	e.hub.broadcastAll(summary, nil)
	e.hub.broadcastAll(rainPoolEvent{Type: typeRainPool, Amount: e.pool}, nil)

	e.logger.Info().
		Int64("distributed", distributed).
		Int64("payout", payout).
		Strs("winners", winners).
		Int64("pool_remainder", e.pool).
		Msg("Rain distributed.")
}

// announce broadcasts a system message voiced by the bot to every session and
// records it in the default room's history.
func (e *Economy) announce(text string) {
	msg := NewMessage(typeSystem, e.bot, e.cfg.DefaultRoom, text, e.hub.now().UnixMilli())

	if room, ok := e.hub.rooms[e.cfg.DefaultRoom]; ok {
		e.hub.appendHistory(room, msg)
	}
	e.hub.broadcastAll(msg, nil)
}

// persist dispatches one durable balance commit off the hub loop. Commits are
// best-effort: cached balances stay operative whether or not the store call lands.
func (e *Economy) persist(userID string, delta int64, reason string) {
	if e.store == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeCommitTimeout)
		defer cancel()

		if err := e.store.Commit(ctx, userID, delta, reason); err != nil {
			e.logger.Warn().Err(err).
				Str("user_id", userID).
				Int64("delta", delta).
				Str("reason", reason).
				Msg("Durable balance commit failed.")
		}
	}()
}

// loadBalance fetches the authoritative balance for a freshly authenticated
// session and applies it back on the hub loop, provided the session is still
// connected as the same user.
func (e *Economy) loadBalance(s *Session) {
	if e.store == nil {
		return
	}

	sessionID := s.id
	userID := s.user.ID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeCommitTimeout)
		defer cancel()

		bal, err := e.store.Get(ctx, userID)
		if err != nil {
			e.logger.Warn().Err(err).Str("user_id", userID).Msg("Authoritative balance load failed.")
			return
		}

		e.hub.Do(func() {
			current, ok := e.hub.sessions[sessionID]
			if !ok || current != s || s.state != stateAuthenticated || s.user.ID != userID {
				return
			}
			s.user.Balance = bal
			s.sendEvent(balanceEvent{Type: typeBalance, Balance: bal})
		})
	}()
}

// sweepHourly drops contribution counters from past hours so the map stays
// bounded by the currently active user set.
func (e *Economy) sweepHourly() {
	suffix := e.hub.now().Format(hourlyKeyLayout)

	removed := 0
	for key := range e.hourly {
		if !strings.HasSuffix(key, suffix) {
			delete(e.hourly, key)
			removed++
		}
	}

	if removed > 0 {
		e.logger.Debug().Int("removed", removed).Msg("Swept stale hourly contribution counters.")
	}
}

func hourlyKey(userID string, t time.Time) string {
	return userID + "|" + t.Format(hourlyKeyLayout)
}
