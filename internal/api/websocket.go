package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"queueaway/internal/config"
	"queueaway/internal/domain"
	"queueaway/internal/events"
	"queueaway/internal/metrics"
	"queueaway/internal/models"
	"queueaway/internal/realtime"
	"queueaway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxFrameSize = 64 << 10
)

// Client ops.
const (
	opSubscribe   = "subscribe"
	opUnsubscribe = "unsubscribe"
	opLogin       = "login"
	opSignup      = "signup"
	opLogout      = "logout"
	opAdopt       = "adopt"
	opGoogle      = "google"
	opMarkRead    = "mark_read"
)

// Server frame types.
const (
	frameAuth         = "auth"
	frameSession      = "session"
	frameSnapshot     = "snapshot"
	frameNotice       = "notice"
	frameNotification = "notification"
	frameError        = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type clientFrame struct {
	Op          string `json:"op"`
	ID          string `json:"id,omitempty"`
	Collection  string `json:"collection,omitempty"`
	Category    string `json:"category,omitempty"`
	BusinessID  string `json:"businessId,omitempty"`
	With        string `json:"with,omitempty"`
	Token       string `json:"token,omitempty"`
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Code        string `json:"code,omitempty"`
}

type serverFrame struct {
	Type         string               `json:"type"`
	ID           string               `json:"id,omitempty"`
	Collection   string               `json:"collection,omitempty"`
	SessionID    string               `json:"sessionId,omitempty"`
	Identity     *models.Identity     `json:"identity,omitempty"`
	Session      *service.Session     `json:"session,omitempty"`
	Data         any                  `json:"data,omitempty"`
	Notice       *service.Notice      `json:"notice,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
	// Native asks the client to also raise a system notification.
	Native bool   `json:"native,omitempty"`
	Error  string `json:"error,omitempty"`
}

// collectionQueue is the signed-in user's live queue: positions, waits and dashboard stats.
const collectionQueue = "queue"

type liveQuery struct {
	stop func()
	// personal queries belong to the signed-in user and end when the identity changes
	personal bool
}

// wsSession is one connected client: its auth state and the live queries it holds.
type wsSession struct {
	srv    *Server
	conn   *websocket.Conn
	send   chan []byte
	state  *service.AuthState
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	uid     string
	queries map[string]liveQuery

	unsubscribeNotifications func()
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}

	sess := s.newSession(conn)
	go sess.writePump()

	if err := sess.start(c.Query("token")); err != nil {
		sess.logger.Error().Err(err).Msg("start websocket session")
		sess.close()
		return
	}
	go sess.readPump()
}

func (s *Server) newSession(conn *websocket.Conn) *wsSession {
	ctx, cancel := context.WithCancel(context.Background())
	buffer := s.cfg.WebSocket.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	sess := &wsSession{
		srv:     s,
		conn:    conn,
		send:    make(chan []byte, buffer),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		queries: make(map[string]liveQuery),
	}
	sess.state = service.NewAuthState(s.svc.Auth, s.svc.Feed, &s.logger,
		service.WithNoticeHandler(sess.onNotice),
		service.WithIdentityHandler(sess.onIdentity),
	)
	sess.logger = s.logger.With().Str("session_id", sess.state.SessionID()).Logger()
	metrics.SessionOpened()
	return sess
}

func (w *wsSession) start(token string) error {
	w.unsubscribeNotifications = w.srv.svc.Feed.Subscribe(events.EventNotification, w.onNotification)
	if err := w.state.Start(w.ctx, token); err != nil {
		return err
	}
	w.logger.Debug().Msg("websocket session started")
	return nil
}

func (w *wsSession) close() {
	w.once.Do(func() {
		w.cancel()
		close(w.done)

		w.mu.Lock()
		queries := w.queries
		w.queries = make(map[string]liveQuery)
		w.mu.Unlock()
		for _, q := range queries {
			q.stop()
		}

		if w.unsubscribeNotifications != nil {
			w.unsubscribeNotifications()
		}
		w.state.Close()
		_ = w.conn.Close()
		metrics.SessionClosed()
		w.logger.Debug().Msg("websocket session closed")
	})
}

func (w *wsSession) pingInterval() time.Duration {
	d := config.Duration(w.srv.cfg.WebSocket.PingInterval)
	if d <= 0 {
		d = 54 * time.Second
	}
	return d
}

func (w *wsSession) readPump() {
	defer w.close()

	pongWait := w.pingInterval() * 10 / 9
	w.conn.SetReadLimit(wsMaxFrameSize)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				w.logger.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var f clientFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			w.push(serverFrame{Type: frameError, Error: "invalid frame"})
			continue
		}
		w.dispatch(f)
	}
}

func (w *wsSession) writePump() {
	ticker := time.NewTicker(w.pingInterval())
	defer func() {
		ticker.Stop()
		w.close()
	}()

	for {
		select {
		case <-w.done:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = w.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-w.send:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// push queues a frame. A client that cannot keep up is disconnected.
func (w *wsSession) push(f serverFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		w.logger.Error().Err(err).Str("type", f.Type).Msg("marshal websocket frame")
		return
	}
	select {
	case <-w.done:
	case w.send <- data:
	default:
		w.logger.Warn().Msg("websocket send buffer full, closing session")
		go w.close()
	}
}

func (w *wsSession) dispatch(f clientFrame) {
	ctx := w.ctx
	switch f.Op {
	case opSubscribe:
		w.subscribe(f)
	case opUnsubscribe:
		w.unsubscribe(f.ID)
	case opLogin:
		if session, err := w.state.Login(ctx, f.Email, f.Password); err == nil {
			w.push(serverFrame{Type: frameSession, Session: session})
		}
	case opSignup:
		if session, err := w.state.Signup(ctx, f.Email, f.Password, f.DisplayName); err == nil {
			w.push(serverFrame{Type: frameSession, Session: session})
		}
	case opGoogle:
		if session, err := w.state.FederatedLogin(ctx, f.Code); err == nil {
			w.push(serverFrame{Type: frameSession, Session: session})
		}
	case opLogout:
		_ = w.state.Logout(ctx)
	case opAdopt:
		if err := w.state.Adopt(ctx, f.Token); err != nil {
			w.push(serverFrame{Type: frameError, Error: domain.UserMessage(err, msgInternal)})
		}
	case opMarkRead:
		identity := w.state.Current()
		if identity == nil {
			w.push(serverFrame{Type: frameError, ID: f.ID, Error: domain.UserMessage(domain.ErrUnauthenticated, "")})
			return
		}
		w.srv.svc.Chat.MarkRead(ctx, identity.UID, f.With)
	default:
		w.push(serverFrame{Type: frameError, ID: f.ID, Error: "unknown op " + f.Op})
	}
}

func (w *wsSession) subscribe(f clientFrame) {
	id := f.ID
	if id == "" {
		id = f.Collection
	}
	svc := w.srv.svc
	identity := w.state.Current()

	snapshot := func(data any) {
		w.push(serverFrame{Type: frameSnapshot, ID: id, Collection: f.Collection, Data: data})
	}
	onError := func(err error) {
		w.logger.Warn().Err(err).Str("query_id", id).Str("collection", f.Collection).Msg("live query failed")
		w.push(serverFrame{Type: frameError, ID: id, Collection: f.Collection, Error: msgInternal})
	}
	needIdentity := func() bool {
		if identity == nil {
			w.push(serverFrame{Type: frameError, ID: id, Collection: f.Collection, Error: domain.UserMessage(domain.ErrUnauthenticated, "")})
			return false
		}
		return true
	}

	var (
		sub      *realtime.Subscription
		stop     func()
		personal bool
	)
	switch f.Collection {
	case events.CollectionBusinesses:
		sub = svc.Businesses.SubscribeByCategory(w.ctx, f.Category, func(list []*models.Business) { snapshot(list) }, onError)
	case events.CollectionAppointments:
		if f.BusinessID != "" {
			sub = svc.Booking.SubscribeBusinessAppointments(w.ctx, f.BusinessID, func(list []*models.Appointment) { snapshot(list) }, onError)
			break
		}
		if !needIdentity() {
			return
		}
		personal = true
		sub = svc.Booking.SubscribeUserAppointments(w.ctx, identity.UID, func(list []*models.Appointment) { snapshot(list) }, onError)
	case events.CollectionMessages:
		if !needIdentity() {
			return
		}
		if f.With == "" {
			w.push(serverFrame{Type: frameError, ID: id, Collection: f.Collection, Error: "with is required"})
			return
		}
		personal = true
		sub = svc.Chat.SubscribeMessages(w.ctx, identity.UID, f.With, func(list []*models.Message) { snapshot(list) }, onError)
	case events.CollectionChats:
		if !needIdentity() {
			return
		}
		personal = true
		sub = svc.Chat.SubscribeUserChats(w.ctx, identity.UID, func(list []models.ChatSummary) { snapshot(list) }, onError)
	case collectionQueue:
		if !needIdentity() {
			return
		}
		personal = true
		uid := identity.UID
		stop = svc.Queue.OnChange(func() { snapshot(w.queueView(uid)) })
		snapshot(w.queueView(uid))
	default:
		w.push(serverFrame{Type: frameError, ID: id, Error: "unknown collection " + f.Collection})
		return
	}

	if sub != nil {
		stop = sub.Unsubscribe
	}
	uid := ""
	if identity != nil {
		uid = identity.UID
	}
	if !w.register(id, liveQuery{stop: stop, personal: personal}, uid) {
		w.push(serverFrame{Type: frameError, ID: id, Collection: f.Collection, Error: domain.UserMessage(domain.ErrUnauthenticated, "")})
	}
}

// register stores q under id, replacing any query already there. A personal query opened
// for uid is stopped instead when the session has since changed user.
func (w *wsSession) register(id string, q liveQuery, uid string) bool {
	w.mu.Lock()
	if q.personal && w.uid != uid {
		w.mu.Unlock()
		q.stop()
		return false
	}
	prev, replaced := w.queries[id]
	w.queries[id] = q
	w.mu.Unlock()
	if replaced {
		prev.stop()
	}
	return true
}

func (w *wsSession) unsubscribe(id string) {
	w.mu.Lock()
	q, ok := w.queries[id]
	delete(w.queries, id)
	w.mu.Unlock()
	if ok {
		q.stop()
	}
}

func (w *wsSession) onNotice(n service.Notice) {
	w.push(serverFrame{Type: frameNotice, Notice: &n})
}

// onIdentity reports the new identity and ends the previous user's personal queries.
func (w *wsSession) onIdentity(identity *models.Identity) {
	uid := ""
	if identity != nil {
		uid = identity.UID
	}

	w.mu.Lock()
	var stale []func()
	if uid != w.uid {
		for id, q := range w.queries {
			if q.personal {
				stale = append(stale, q.stop)
				delete(w.queries, id)
			}
		}
	}
	w.uid = uid
	w.mu.Unlock()

	for _, stop := range stale {
		stop()
	}
	w.push(serverFrame{Type: frameAuth, SessionID: w.state.SessionID(), Identity: identity})
}

func (w *wsSession) onNotification(e *events.Event) error {
	var n models.Notification
	if err := e.Decode(&n); err != nil {
		return err
	}
	w.mu.Lock()
	uid := w.uid
	w.mu.Unlock()
	if uid == "" || n.UserID != uid {
		return nil
	}

	n.Title = n.TitleOrDefault()
	w.push(serverFrame{
		Type:         frameNotification,
		Notification: &n,
		Native:       w.srv.svc.Notifications.Enabled(w.ctx, uid),
	})
	return nil
}

type queueEntry struct {
	Appointment       *models.Appointment `json:"appointment"`
	Position          int                 `json:"position"`
	EstimatedWaitTime int                 `json:"estimatedWaitTime"`
	BookedPosition    int                 `json:"bookedPosition"`
	BookedWaitTime    int                 `json:"bookedWaitTime"`
}

type queueView struct {
	Stats        models.DashboardStats `json:"stats"`
	Appointments []queueEntry          `json:"appointments"`
	Loading      bool                  `json:"loading"`
}

func (w *wsSession) queueView(uid string) queueView {
	q := w.srv.svc.Queue
	mine := q.UserAppointments(uid)
	view := queueView{
		Stats:        q.Dashboard(uid, w.srv.now()),
		Appointments: make([]queueEntry, 0, len(mine)),
		Loading:      q.Loading(),
	}
	for _, a := range mine {
		view.Appointments = append(view.Appointments, queueEntry{
			Appointment:       a,
			Position:          q.CurrentQueuePosition(a.ID),
			EstimatedWaitTime: q.EstimatedWaitTime(a.ID),
			BookedPosition:    a.QueuePosition,
			BookedWaitTime:    a.EstimatedWaitTime,
		})
	}
	return view
}
