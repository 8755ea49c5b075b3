package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"slotwise/internal/calendar"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"
)

var chatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "slotwise_chat_turns_total",
	Help: "Chat turns processed, labelled by outcome.",
}, []string{"outcome"})

const fallbackReply = "Sorry, I encountered an error."

// WebSocketMessage defines the structure for incoming JSON messages from the frontend.
type WebSocketMessage struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

type chatRequest struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

type chatResponse struct {
	Token    string `json:"token"`
	Response string `json:"response"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all connections
	},
}

// tokenStore holds the OAuth token source obtained via the login flow so
// calendar calls made during later chat turns can pick it up.
type tokenStore struct {
	mu sync.Mutex
	ts oauth2.TokenSource
}

func (s *tokenStore) set(ts oauth2.TokenSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ts = ts
}

func (s *tokenStore) get() oauth2.TokenSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ts
}

type oauthHandler struct {
	oauthConfig *oauth2.Config
	store       *tokenStore
}

func newOauthHandler(oauthConfig *oauth2.Config, store *tokenStore) oauthHandler {
	return oauthHandler{
		oauthConfig: oauthConfig,
		store:       store,
	}
}

func (o oauthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/oauth/login/":
		o.handleLogin(w, r)
	case "/oauth/oauth2callback/":
		o.handleCallback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (o *oauthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	// State can be a random string to protect against CSRF
	url := o.oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (o *oauthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}
	token, err := o.oauthConfig.Exchange(ctx, code)
	if err != nil {
		http.Error(w, "Token exchange error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	o.store.set(o.oauthConfig.TokenSource(ctx, token))
	fmt.Fprintln(w, "Authorization complete. You can close this tab and return to the chat.")
}

// Server exposes the chat API over HTTP and websocket.
type Server struct {
	sessions *Manager
	store    *tokenStore
}

// New builds the HTTP handler. oauthConfig may be nil when Google login
// is not configured.
func New(sessions *Manager, oauthConfig *oauth2.Config) http.Handler {
	s := &Server{
		sessions: sessions,
		store:    &tokenStore{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/ws", s.handleConnections)

	if oauthConfig != nil {
		mux.Handle("/oauth/", newOauthHandler(oauthConfig, s.store))
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	resp, err := s.turn(r.Context(), req.Token, req.Message)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Println("Failed to encode chat response:", err)
	}
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer ws.Close()

	log.Println("Client connected")

	for {
		// Read message from browser
		_, msgBytes, err := ws.ReadMessage()
		if err != nil {
			log.Println("Client disconnected:", err)
			break
		}

		// Unmarshal the JSON message
		var msg WebSocketMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			log.Println("Invalid JSON message:", err)
			continue
		}
		if msg.Message == "" {
			continue
		}

		resp, err := s.turn(r.Context(), msg.Token, msg.Message)
		if err != nil {
			if writeErr := ws.WriteMessage(websocket.TextMessage, []byte(fallbackReply)); writeErr != nil {
				log.Println("Write error:", writeErr)
			}
			continue
		}

		out, err := json.Marshal(resp)
		if err != nil {
			log.Println("Failed to encode chat response:", err)
			continue
		}
		if err := ws.WriteMessage(websocket.TextMessage, out); err != nil {
			log.Println("Write error:", err)
		}
	}
}

// turn resolves the session and runs one conversational turn. Agent
// failures are reported in the reply text, never as an error.
func (s *Server) turn(ctx context.Context, token, message string) (chatResponse, error) {
	sid, token, err := s.sessions.Resolve(token)
	if err != nil {
		log.Println("Session error:", err)
		return chatResponse{}, err
	}

	if ts := s.store.get(); ts != nil {
		ctx = calendar.WithTokenSource(ctx, ts)
	}

	reply, err := s.sessions.Run(ctx, sid, message)
	if err != nil {
		log.Printf("Agent Error: %v\n", err)
		chatTurns.WithLabelValues("error").Inc()
		return chatResponse{Token: token, Response: fallbackReply}, nil
	}

	chatTurns.WithLabelValues("ok").Inc()
	return chatResponse{Token: token, Response: reply}, nil
}
