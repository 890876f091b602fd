package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

const submitTimeout = 10 * time.Second

// IdentityFunc resolves a player name from a bearer token.
type IdentityFunc func(token string) (string, error)

type WSHandler struct {
	service  *app.QuizService
	identity IdentityFunc
	tick     time.Duration
	upgrader websocket.Upgrader
}

// NewWSHandler wires gameplay sockets into the quiz use cases. identity may be nil.
func NewWSHandler(service *app.QuizService, identity IdentityFunc) *WSHandler {
	return &WSHandler{
		service:  service,
		identity: identity,
		tick:     time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type questionPayload struct {
	Index           int                   `json:"index"`
	Total           int                   `json:"total"`
	TimePerQuestion int                   `json:"timePerQuestion"`
	Question        domain.PublicQuestion `json:"question"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type submittedPayload struct {
	LeaderboardID string `json:"leaderboardId"`
	OK            bool   `json:"ok"`
	Message       string `json:"message,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type player struct {
	username string
	token    string
}

// ServeWS upgrades HTTP requests to websockets and plays one quiz session per connection.
//
// Query: difficulty, category, optional username and token for leaderboard submission.
// Client messages: answer {answer}, next, quit.
// Server messages: session, question, tick, answerResult, waiting, complete, submitted, error.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	difficulty, err := domain.ParseDifficulty(q.Get("difficulty"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	category, err := domain.LookupCategory(q.Get("category"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	who := h.resolvePlayer(q.Get("username"), q.Get("token"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.StartSession(r.Context(), difficulty, category)
	if err != nil {
		log.Printf("start session %s/%s failed: %v", category.Name, difficulty, err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: domain.UserMessage(err, difficulty, category)}})
		return
	}
	defer h.service.End(session.ID())

	send := make(chan outboundMessage[any], 16)
	inbound := make(chan inboundMessage)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	readerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				break
			}
		}
		// keep draining so the game never blocks on a dead connection
		for range send {
		}
	}()

	go func() {
		defer close(readerDone)
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	g := &game{handler: h, session: session, send: send, inbound: inbound, player: who}
	g.play(r.Context())

	close(closeSignals)
	close(send)
	<-writerDone
	// unblock the reader if the client is still connected
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = conn.Close()
	<-readerDone
}

func (h *WSHandler) resolvePlayer(username, token string) player {
	if token == "" {
		return player{}
	}
	if username == "" && h.identity != nil {
		name, err := h.identity(token)
		if err != nil {
			log.Printf("leaderboard identity unavailable: %v", err)
			return player{}
		}
		username = name
	}
	return player{username: username, token: token}
}

// game drives one session from its first question to the result.
type game struct {
	handler   *WSHandler
	session   *app.Session
	send      chan<- outboundMessage[any]
	inbound   <-chan inboundMessage
	player    player
	countdown *app.Countdown
}

func (g *game) emit(typ string, payload any) {
	g.send <- outboundMessage[any]{Type: typ, Payload: payload}
}

func (g *game) play(ctx context.Context) {
	defer g.stopCountdown()

	g.emit("session", g.session.Snapshot())
	if !g.present() {
		return
	}

	for {
		var ticks <-chan int
		var expired <-chan struct{}
		if g.countdown != nil {
			ticks = g.countdown.Ticks()
			expired = g.countdown.Expired()
		}

		select {
		case <-ctx.Done():
			return
		case <-g.session.Done():
			return
		case remaining := <-ticks:
			g.emit("tick", tickPayload{Remaining: remaining})
		case <-expired:
			g.stopCountdown()
			res, err := g.handler.service.TimeOut(g.session.ID())
			if err != nil {
				g.emit("error", errorPayload{Message: err.Error()})
				continue
			}
			g.emit("answerResult", res)
		case msg, ok := <-g.inbound:
			if !ok {
				return
			}
			if done := g.handle(ctx, msg); done {
				return
			}
		}
	}
}

// handle applies one client message and reports whether the game is over.
func (g *game) handle(ctx context.Context, msg inboundMessage) bool {
	switch msg.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			g.emit("error", errorPayload{Message: "invalid answer payload"})
			return false
		}
		res, err := g.handler.service.Answer(g.session.ID(), payload.Answer)
		if err != nil {
			g.emit("error", errorPayload{Message: err.Error()})
			return false
		}
		g.stopCountdown()
		g.emit("answerResult", res)
		return false
	case "next":
		return g.advance(ctx)
	case "quit":
		return true
	default:
		g.emit("error", errorPayload{Message: "unsupported message type"})
		return false
	}
}

// advance moves to the next question, waiting out a stall while questions load.
func (g *game) advance(ctx context.Context) bool {
	for {
		outcome, err := g.handler.service.Advance(g.session.ID())
		switch {
		case errors.Is(err, domain.ErrAwaitingQuestions):
			g.emit("waiting", g.session.Snapshot())
			if !g.awaitQuestions(ctx) {
				return true
			}
			continue
		case errors.Is(err, domain.ErrQuestionPending):
			// the current question and its countdown keep running
			g.emit("error", errorPayload{Message: err.Error()})
			return false
		case err != nil:
			g.emit("error", errorPayload{Message: err.Error()})
			return errors.Is(err, domain.ErrSessionComplete) || errors.Is(err, domain.ErrSessionNotFound)
		}

		g.stopCountdown()
		if outcome == app.Completed {
			g.finish(ctx)
			return true
		}
		return !g.present()
	}
}

// awaitQuestions blocks until the next question is loaded or loading stops.
func (g *game) awaitQuestions(ctx context.Context) bool {
	updates, cancel := g.session.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-g.session.Done():
			return false
		case msg, ok := <-g.inbound:
			if !ok || msg.Type == "quit" {
				return false
			}
		case snap, ok := <-updates:
			if !ok {
				return false
			}
			if snap.LoadedQuestions > snap.CurrentQuestionIndex+1 || !snap.LoadingMoreQuestions {
				return true
			}
		}
	}
}

func (g *game) present() bool {
	question, err := g.session.Current()
	if err != nil {
		g.emit("error", errorPayload{Message: err.Error()})
		return false
	}
	snap := g.session.Snapshot()
	g.emit("question", questionPayload{
		Index:           snap.CurrentQuestionIndex,
		Total:           snap.ExpectedTotalQuestions,
		TimePerQuestion: snap.TimePerQuestion,
		Question:        question.Public(),
	})
	g.countdown = app.StartCountdown(g.session.Context(), snap.TimePerQuestion, g.handler.tick)
	return true
}

func (g *game) stopCountdown() {
	if g.countdown != nil {
		g.countdown.Stop()
		g.countdown = nil
	}
}

func (g *game) finish(ctx context.Context) {
	snap := g.session.Snapshot()
	result := g.handler.service.CompleteSession(g.session, snap.CorrectAnswers)
	g.emit("complete", result)

	// anonymous results are still archived; only identified players hear back
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()
	err := g.handler.service.SubmitResult(submitCtx, result, g.player.username, g.player.token)
	if g.player.username == "" || g.player.token == "" {
		return
	}
	status := submittedPayload{LeaderboardID: result.LeaderboardID(), OK: true}
	if err != nil {
		status.OK = false
		status.Message = "Your score could not be submitted to the leaderboard."
	}
	g.emit("submitted", status)
}
