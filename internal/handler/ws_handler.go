package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/middleware"
	"github.com/stemsi/prepexam/internal/model"
	"github.com/stemsi/prepexam/internal/response"
	"github.com/stemsi/prepexam/internal/service"
	ws "github.com/stemsi/prepexam/internal/websocket"
)

const tickInterval = time.Second

// AttemptEventSource streams lifecycle events for one attempt.
type AttemptEventSource interface {
	Subscribe(ctx context.Context, attemptID uuid.UUID) (<-chan model.AttemptEvent, func() error)
}

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt: actions in, state, countdown ticks and
// lifecycle events out.
type WSHandler struct {
	attemptService *service.AttemptService
	events         AttemptEventSource
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. With a nil events source guard
// events are not relayed.
func NewWSHandler(attemptService *service.AttemptService, events AttemptEventSource, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		events:         events,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership is checked before the upgrade so a stranger gets a plain 403.
	view, err := h.attemptService.Progress(c.Request.Context(), claims.UserID, attemptID)
	if err != nil {
		failWithError(c, err)
		return
	}
	done, err := h.attemptService.Done(claims.UserID, attemptID)
	if err != nil {
		failWithError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	s := &stream{
		h:         h,
		conn:      conn,
		userID:    claims.UserID,
		attemptID: attemptID,
		done:      done,
		out:       make(chan ws.Message, 16),
		log: h.log.With().
			Int("user_id", claims.UserID).
			Str("attempt_id", attemptID.String()).
			Logger(),
	}
	s.log.Info().Msg("Candidate connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, view)
		// Unblocks the reader when the writer gave up first.
		cancel()
		conn.Close()
	}()

	s.readLoop(ctx)
	cancel()
	<-writerDone
	s.log.Debug().Msg("Connection closed")
}

type stream struct {
	h         *WSHandler
	conn      *websocket.Conn
	userID    int
	attemptID uuid.UUID
	done      <-chan struct{}
	out       chan ws.Message
	log       zerolog.Logger
}

func (s *stream) readLoop(ctx context.Context) {
	for {
		var req ws.Request
		if err := ws.ReadJSON(s.conn, &req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		msg := s.dispatch(ctx, req)
		select {
		case s.out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// dispatch runs one client action and returns the reply frame.
func (s *stream) dispatch(ctx context.Context, req ws.Request) ws.Message {
	svc := s.h.attemptService

	var (
		view *model.AttemptView
		err  error
	)
	switch req.Action {
	case ws.ActionPing:
		return ws.Message{Event: ws.EventPong}
	case ws.ActionSelect:
		if req.Option == nil {
			return ws.ErrorMessage(response.ErrValidation, "option is required")
		}
		view, err = svc.SelectAnswer(ctx, s.userID, s.attemptID, *req.Option)
	case ws.ActionNext:
		view, err = svc.Next(ctx, s.userID, s.attemptID)
		if err == nil && view.SubmitRequested {
			return ws.Message{Event: ws.EventConfirmSubmit, Data: view}
		}
	case ws.ActionPrevious:
		view, err = svc.Previous(ctx, s.userID, s.attemptID)
	case ws.ActionJump:
		if req.Index == nil {
			return ws.ErrorMessage(response.ErrValidation, "index is required")
		}
		view, err = svc.JumpTo(ctx, s.userID, s.attemptID, *req.Index)
	case ws.ActionMark:
		view, err = svc.ToggleMark(ctx, s.userID, s.attemptID)
	case ws.ActionSubmit:
		sv, err := svc.Submit(ctx, s.userID, s.attemptID)
		if err != nil {
			return s.errorFrame(err)
		}
		return ws.Message{Event: ws.EventGraded, Data: sv}
	default:
		s.log.Warn().Str("action", string(req.Action)).Msg("Unknown action")
		return ws.ErrorMessage(response.ErrInvalidPayload, "unknown action: "+string(req.Action))
	}

	if err != nil {
		return s.errorFrame(err)
	}
	return ws.Message{Event: ws.EventState, Data: view}
}

func (s *stream) errorFrame(err error) ws.Message {
	_, code := errorStatus(err)
	if code == response.ErrInternal {
		s.log.Error().Err(err).Msg("Action failed")
		return ws.ErrorMessage(code, "")
	}
	return ws.ErrorMessage(code, err.Error())
}

// writeLoop owns every write on the connection. The graded event may come
// from the submit reply, the event bus or local completion; only the first
// is sent.
func (s *stream) writeLoop(ctx context.Context, initial *model.AttemptView) {
	var events <-chan model.AttemptEvent
	if s.h.events != nil {
		ch, closeSub := s.h.events.Subscribe(ctx, s.attemptID)
		defer closeSub()
		events = ch
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	graded := false
	done := s.done
	send := func(msg ws.Message) bool {
		if msg.Event == ws.EventGraded {
			if graded {
				return true
			}
			graded = true
			ticker.Stop()
		}
		if err := ws.WriteTyped(s.conn, msg); err != nil {
			s.log.Debug().Err(err).Msg("Write failed")
			return false
		}
		return true
	}

	if !send(ws.Message{Event: ws.EventState, Data: initial}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-s.out:
			if !send(msg) {
				return
			}

		case <-ticker.C:
			if graded {
				continue
			}
			view, err := s.h.attemptService.Progress(ctx, s.userID, s.attemptID)
			if err != nil || view.Progress.Phase != engine.PhaseInProgress {
				continue
			}
			if !send(ws.Message{Event: ws.EventTick, Data: ws.TickData{TimeRemainingSeconds: view.Progress.TimeRemainingSeconds}}) {
				return
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			msg, known := eventFrame(ev)
			if known && !send(msg) {
				return
			}

		case <-done:
			done = nil
			sv, err := s.h.attemptService.Result(ctx, s.userID, s.attemptID)
			if err != nil {
				continue
			}
			if !send(ws.Message{Event: ws.EventGraded, Data: sv}) {
				return
			}
		}
	}
}

func eventFrame(ev model.AttemptEvent) (ws.Message, bool) {
	switch ev.Type {
	case model.AttemptEventGuard:
		enabled := ev.GuardEnabled != nil && *ev.GuardEnabled
		return ws.Message{Event: ws.EventGuard, Data: ws.GuardData{Enabled: enabled}}, true
	case model.AttemptEventGraded:
		return ws.Message{Event: ws.EventGraded, Data: ev.Submission}, true
	}
	return ws.Message{}, false
}
