/*
This file defines the Hub struct, the single owner of all shared chat and economy
state. Session registration, envelope routing, room membership, balances, the rain
pool, and scheduler tasks are all processed by one run loop, which makes every
economic mutation atomic with respect to every other.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rainchat/internal/app/archive"
	"rainchat/internal/app/balance"
	"rainchat/internal/app/user"
	"rainchat/internal/configs"
	"rainchat/internal/pkg/auth/jwt"
	"rainchat/internal/pkg/errs"
	"rainchat/internal/pkg/logx"
)

const (
	inboundChannelBuffer = 256
	taskChannelBuffer    = 64

	// snapshotTimeout bounds how long HTTP handlers wait for the run loop.
	snapshotTimeout = 2 * time.Second

	// archiveTimeout bounds a single history archive upload.
	archiveTimeout = 30 * time.Second
)

// inboundFrame couples a raw frame with the session that sent it.
type inboundFrame struct {
	sess *Session
	data []byte
}

// Stats is a point-in-time snapshot of hub state for the stats endpoint.
type Stats struct {
	Online   int            `json:"online"`
	RainPool int64          `json:"rainPool"`
	Rooms    map[string]int `json:"rooms"`
}

// Hub coordinates all sessions, rooms, and the economy engine.
type Hub struct {
	cfg *configs.AppConfig

	// sessions maps session id to every connected session, authenticated or not.
	sessions map[string]*Session

	// byUser indexes authenticated sessions by user id, kept in lockstep with
	// session auth and teardown.
	byUser map[string]*Session

	// rooms holds the fixed configured room set.
	rooms map[string]*Room

	// global is the cross-room history buffer used alongside per-room buffers.
	global *historyBuffer

	economy  *Economy
	archiver archive.Service

	register   chan *Session
	unregister chan *Session
	inbound    chan inboundFrame
	tasks      chan func()

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	fatal    chan error

	// now is the clock, replaceable in tests.
	now func() time.Time

	logger zerolog.Logger
}

// NewHub constructs a Hub with its fixed room set and economy engine.
// store and archiver may be nil when the respective collaborator is not configured.
func NewHub(cfg *configs.AppConfig, store balance.Store, archiver archive.Service) *Hub {
	h := &Hub{
		cfg:        cfg,
		sessions:   make(map[string]*Session),
		byUser:     make(map[string]*Session),
		rooms:      make(map[string]*Room),
		global:     newHistoryBuffer(cfg.HistoryCap),
		archiver:   archiver,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		inbound:    make(chan inboundFrame, inboundChannelBuffer),
		tasks:      make(chan func(), taskChannelBuffer),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
		fatal:      make(chan error, 1),
		now:        time.Now,
		logger:     logx.Logger().With().Str("component", "Hub").Logger(),
	}

	for _, id := range cfg.Rooms {
		h.rooms[id] = newRoom(id, cfg.HistoryCap)
	}

	h.economy = newEconomy(cfg, h, store)

	return h
}

// Run starts the hub's single-writer event loop. A panic anywhere in the loop is
// unrecoverable for the in-memory economic state, so it is reported on the fatal
// channel and the full teardown sequence runs instead of partial recovery.
func (h *Hub) Run() {
	defer close(h.done)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("hub loop fault: %v", r)
			h.logger.Error().Err(err).Msg("Unrecoverable fault in hub loop, starting shutdown")

			select {
			case h.fatal <- err:
			default:
			}
		}

		h.teardown()
	}()

	h.logger.Info().Strs("rooms", h.cfg.Rooms).Msg("Hub loop started.")

	for {
		select {
		case s := <-h.register:
			h.addSession(s)

		case s := <-h.unregister:
			h.removeSession(s)

		case in := <-h.inbound:
			h.route(in.sess, in.data)

		case task := <-h.tasks:
			task()

		case <-h.stopChan:
			h.logger.Info().Msg("Hub stop requested.")
			return
		}
	}
}

// Fatal exposes the channel carrying an unrecoverable loop fault, if one occurs.
func (h *Hub) Fatal() <-chan error {
	return h.fatal
}

// Register hands a freshly accepted session to the run loop.
func (h *Hub) Register(s *Session) {
	select {
	case h.register <- s:
	case <-h.stopChan:
		s.forceClose()
	}
}

// Unregister hands a closed session to the run loop for teardown. Safe to call
// more than once for the same session.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.stopChan:
	}
}

// Inbound forwards a raw frame from a session's read pump to the run loop.
func (h *Hub) Inbound(s *Session, data []byte) {
	select {
	case h.inbound <- inboundFrame{sess: s, data: data}:
	case <-h.stopChan:
	}
}

// Do schedules fn onto the run loop. It reports false once the hub has stopped.
func (h *Hub) Do(fn func()) bool {
	select {
	case h.tasks <- fn:
		return true
	case <-h.stopChan:
		return false
	}
}

// Shutdown stops the run loop and waits for the teardown sequence to finish.
// Safe to call more than once.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	<-h.done
}

// Snapshot returns current hub statistics, computed on the run loop.
func (h *Hub) Snapshot() (Stats, error) {
	reply := make(chan Stats, 1)

	ok := h.Do(func() {
		st := Stats{
			Online:   h.onlineCount(),
			RainPool: h.economy.PoolTotal(),
			Rooms:    make(map[string]int, len(h.rooms)),
		}
		for id, room := range h.rooms {
			st.Rooms[id] = len(room.members)
		}
		reply <- st
	})
	if !ok {
		return Stats{}, errors.New("hub is stopped")
	}

	select {
	case st := <-reply:
		return st, nil
	case <-time.After(snapshotTimeout):
		return Stats{}, errors.New("hub is busy")
	}
}

// addSession admits a new connection: the session leaves the connecting state
// and receives the welcome envelope. Everything else waits for auth.
func (h *Hub) addSession(s *Session) {
	now := h.now()

	s.state = stateUnauthenticated
	s.joinedAt = now
	s.lastActivity = now

	h.sessions[s.id] = s

	s.sendEvent(welcomeEvent{Type: typeWelcome, Message: "Welcome! Authenticate to join the chat."})

	h.logger.Info().Str("session_id", s.id).Int("total_sessions", len(h.sessions)).Msg("Session connected.")
}

// removeSession tears a session down: registry, user index, room membership,
// and a userLeave broadcast with the updated online count. Idempotent.
func (h *Hub) removeSession(s *Session) {
	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	delete(h.sessions, s.id)

	wasAuthenticated := s.state == stateAuthenticated
	username := s.user.Username
	roomID := s.room

	if current, ok := h.byUser[s.user.ID]; ok && current == s {
		delete(h.byUser, s.user.ID)
	}

	if roomID != "" {
		if room, ok := h.rooms[roomID]; ok {
			room.remove(s)
		}
	}

	s.state = stateDisconnected
	close(s.send)

	h.logger.Info().
		Str("session_id", s.id).
		Str("username", username).
		Dur("session_duration", h.now().Sub(s.joinedAt)).
		Int("total_sessions", len(h.sessions)).
		Msg("Session disconnected.")

	if wasAuthenticated && roomID != "" {
		h.broadcastRoom(roomID, userPresenceEvent{
			Type:      typeUserLeave,
			User:      username,
			UserCount: h.onlineCount(),
		}, nil)
	}
}

// route dispatches one inbound frame by its type discriminator. Frames with an
// unparsable body are logged and dropped; recognized types with missing fields
// get a soft error envelope back.
func (h *Hub) route(s *Session, data []byte) {
	if s.state == stateDisconnected {
		return
	}

	msgType := frameType(data)
	if msgType == "" {
		s.logger.Warn().Bytes("frame", data).Msg("Session sent invalid JSON frame")
		return
	}

	if s.state != stateAuthenticated && msgType != typeAuth {
		s.sendError(errs.NewError(errs.ErrAuthRequired))
		return
	}

	s.lastActivity = h.now()

	switch msgType {
	case typeAuth:
		h.handleAuth(s, data)

	case typeMessage:
		h.handleChat(s, data)

	case typeTip:
		var in tipInbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.logger.Warn().Err(err).Msg("Session sent invalid tip payload")
			return
		}
		h.economy.Tip(s, in.Target, in.Amount)

	case typeRain:
		var in rainInbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.logger.Warn().Err(err).Msg("Session sent invalid rain payload")
			return
		}
		h.economy.Rain(s, in.Amount)

	case typeBalance:
		s.sendEvent(balanceEvent{Type: typeBalance, Balance: s.user.Balance})

	case typeOnline:
		s.sendEvent(userCountEvent{Type: typeUserCount, Count: h.onlineCount()})

	case typeJoinRoom:
		h.handleJoinRoom(s, data)

	default:
		s.sendError(errs.NewError(errs.ErrUnknownMessageType))
	}
}

// handleAuth processes an auth envelope. Re-auth on an already authenticated
// session is treated as a fresh auth; an auth for a user who is connected
// elsewhere replaces the older connection.
func (h *Hub) handleAuth(s *Session, data []byte) {
	var in authInbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.logger.Warn().Err(err).Msg("Session sent invalid auth payload")
		return
	}

	identity, customErr := h.resolveIdentity(in)
	if customErr != nil {
		s.sendError(customErr)
		return
	}

	if existing, ok := h.byUser[identity.ID]; ok && existing != s {
		existing.logger.Warn().
			Str("user_id", identity.ID).
			Msg("User authenticated on a new connection. Replacing old session.")
		existing.closeWithCode(WsCloseCodeSessionKicked, errs.NewError(errs.ErrSessionKicked).Message)
		h.removeSession(existing)
	}

	if s.state == stateAuthenticated && s.user.ID != identity.ID {
		if current, ok := h.byUser[s.user.ID]; ok && current == s {
			delete(h.byUser, s.user.ID)
		}
	}

	previousRoom := s.room
	s.user = identity
	s.state = stateAuthenticated
	s.lastActivity = h.now()
	h.byUser[identity.ID] = s

	room := h.rooms[h.cfg.DefaultRoom]

	if previousRoom != "" && previousRoom != room.ID {
		if prev, ok := h.rooms[previousRoom]; ok {
			prev.remove(s)
		}
	}

	alreadyMember := room.has(s)
	room.add(s)
	s.room = room.ID

	if !alreadyMember {
		h.broadcastRoom(room.ID, userPresenceEvent{
			Type:      typeUserJoin,
			User:      identity.Username,
			UserCount: h.onlineCount(),
		}, s)
	}

	s.sendEvent(authSuccessEvent{Type: typeAuthSuccess, User: s.user})
	s.sendEvent(userCountEvent{Type: typeUserCount, Count: h.onlineCount()})
	s.sendEvent(rainPoolEvent{Type: typeRainPool, Amount: h.economy.PoolTotal()})

	for _, m := range room.history.recent(h.cfg.ReplayLimit) {
		s.sendEvent(m)
	}

	h.economy.loadBalance(s)

	s.logger.Info().
		Str("user_id", identity.ID).
		Str("username", identity.Username).
		Str("room", room.ID).
		Msg("Session authenticated.")
}

// resolveIdentity turns an auth payload into a trusted identity. With a
// configured JWT secret and a presented token, the verified claims win;
// otherwise the raw payload is trusted verbatim (spec'd collaborator contract).
func (h *Hub) resolveIdentity(in authInbound) (user.User, *errs.CustomError) {
	if in.Token != "" && h.cfg.JWTSecret != "" {
		claims, err := jwt.ParseToken(in.Token, h.cfg.JWTSecret)
		if err != nil {
			h.logger.Warn().Err(err).Msg("Rejected invalid identity token")
			return user.User{}, errs.NewError(errs.ErrInvalidToken)
		}
		if claims.UserID == "" || claims.Username == "" {
			return user.User{}, errs.NewError(errs.ErrInvalidAuthPayload)
		}
		return user.User{
			ID:       claims.UserID,
			Username: claims.Username,
			Balance:  claims.Balance,
			IsVip:    claims.IsVip,
		}, nil
	}

	if in.User == nil || in.User.ID == "" || in.User.Username == "" {
		return user.User{}, errs.NewError(errs.ErrInvalidAuthPayload)
	}

	return user.User{
		ID:       in.User.ID,
		Username: in.User.Username,
		Balance:  in.User.Balance,
		IsVip:    in.User.IsVip,
	}, nil
}

// handleChat validates and broadcasts a chat message, then records the sender's
// rain micro-contribution.
func (h *Hub) handleChat(s *Session, data []byte) {
	var in messageInbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.logger.Warn().Err(err).Msg("Session sent invalid message payload")
		return
	}

	if strings.TrimSpace(in.Message) == "" {
		s.sendError(errs.NewError(errs.ErrMissingField, "message"))
		return
	}
	if len(in.Message) > MaxContentBytes {
		s.sendError(errs.NewError(errs.ErrMessageContentTooLong))
		return
	}

	roomID := in.Room
	if roomID == "" {
		roomID = s.room
	}
	room, ok := h.rooms[roomID]
	if !ok || !room.has(s) {
		s.sendError(errs.NewError(errs.ErrRoomNotFound))
		return
	}

	if !s.msgLimiter.Allow() {
		s.sendError(errs.NewError(errs.ErrRateLimitExceeded))
		return
	}

	msg := NewMessage(typeMessage, s.user, roomID, in.Message, h.now().UnixMilli())
	h.appendHistory(room, msg)
	h.broadcastRoom(roomID, msg, nil)

	h.economy.RecordContribution(s)
}

// handleJoinRoom moves a session into a configured room, implicitly leaving the
// previous one. An unknown room id is a no-op.
func (h *Hub) handleJoinRoom(s *Session, data []byte) {
	var in joinRoomInbound
	if err := json.Unmarshal(data, &in); err != nil {
		s.logger.Warn().Err(err).Msg("Session sent invalid joinRoom payload")
		return
	}

	if in.Room == "" {
		s.sendError(errs.NewError(errs.ErrMissingField, "room"))
		return
	}

	room, ok := h.rooms[in.Room]
	if !ok {
		s.logger.Info().Str("room", in.Room).Msg("Ignoring join for unconfigured room")
		return
	}

	if s.room != "" && s.room != room.ID {
		if prev, ok := h.rooms[s.room]; ok {
			prev.remove(s)
		}
	}

	room.add(s)
	s.room = room.ID

	s.sendEvent(roomJoinedEvent{Type: typeRoomJoined, Room: room.ID})
}

// appendHistory records a message in the room's buffer and the global buffer.
func (h *Hub) appendHistory(room *Room, msg Message) {
	room.history.append(msg)
	h.global.append(msg)
}

// broadcastRoom sends v to every member of the room except exclude, skipping
// members whose transport is no longer open.
func (h *Hub) broadcastRoom(roomID string, v any, exclude *Session) {
	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	frame, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling room broadcast")
		return
	}

	for _, member := range room.members {
		if member == exclude || member.state == stateDisconnected {
			continue
		}
		member.enqueue(frame)
	}
}

// broadcastAll sends v to every connected session regardless of room.
func (h *Hub) broadcastAll(v any, exclude *Session) {
	frame, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("Error marshaling global broadcast")
		return
	}

	for _, s := range h.sessions {
		if s == exclude || s.state == stateDisconnected {
			continue
		}
		s.enqueue(frame)
	}
}

// onlineCount returns the number of authenticated sessions.
func (h *Hub) onlineCount() int {
	count := 0
	for _, s := range h.sessions {
		if s.state == stateAuthenticated {
			count++
		}
	}
	return count
}

// sessionByUsername finds the connected session for a username, exact match,
// case-insensitive.
func (h *Hub) sessionByUsername(username string) *Session {
	for _, s := range h.byUser {
		if strings.EqualFold(s.user.Username, username) {
			return s
		}
	}
	return nil
}

// broadcastStats pushes the current online count and pool total to everyone.
// Runs on the loop as a scheduler task.
func (h *Hub) broadcastStats() {
	h.broadcastAll(userCountEvent{Type: typeUserCount, Count: h.onlineCount()}, nil)
	h.broadcastAll(rainPoolEvent{Type: typeRainPool, Amount: h.economy.PoolTotal()}, nil)
}

// compactHistories trims every history buffer back to the configured size,
// archives the evicted messages, and sweeps stale hourly contribution counters.
// Runs on the loop as a scheduler task.
func (h *Hub) compactHistories() {
	for _, room := range h.rooms {
		h.archiveEvicted(room.ID, room.history.compact(h.cfg.HistoryCompactTo))
	}
	h.archiveEvicted("global", h.global.compact(h.cfg.HistoryCompactTo))

	h.economy.sweepHourly()
}

// archiveEvicted hands evicted messages to the archiver off the hub loop.
func (h *Hub) archiveEvicted(roomID string, evicted []Message) {
	if h.archiver == nil || len(evicted) == 0 {
		return
	}

	lines := make([][]byte, 0, len(evicted))
	for _, m := range evicted {
		line, err := json.Marshal(m)
		if err != nil {
			h.logger.Error().Err(err).Str("message_id", m.ID).Msg("Error marshaling message for archive")
			continue
		}
		lines = append(lines, line)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := h.archiver.Archive(ctx, roomID, lines); err != nil {
			h.logger.Warn().Err(err).Str("room", roomID).Msg("History archive upload failed")
		}
	}()
}

// teardown runs after the loop exits: every session gets a shutdown close frame,
// a bounded grace period to acknowledge, then a forced close.
func (h *Hub) teardown() {
	h.logger.Info().Int("sessions", len(h.sessions)).Msg("Hub teardown starting.")

	for _, s := range h.sessions {
		s.closeWithCode(WsCloseCodeServerShutdown, "server shutting down")
	}

	if len(h.sessions) > 0 {
		time.Sleep(h.cfg.ShutdownGrace)
	}

	for _, s := range h.sessions {
		s.forceClose()
		s.state = stateDisconnected
		close(s.send)
	}
	h.sessions = make(map[string]*Session)
	h.byUser = make(map[string]*Session)

	h.logger.Info().Msg("Hub teardown complete.")
}
