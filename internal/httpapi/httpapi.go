// Package httpapi exposes the daemon's published status over HTTP: a
// read-only JSON projection of the status record, a websocket stream
// pushing a frame on every publish, and a small JWT-gated admin surface
// that can issue out-of-band Stop/Reset. It is an additional consumer
// of the published record, never an alternate writer; every admin
// command still flows through the same per-device dispatcher the fifos
// feed.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/opauth"
	"github.com/jmhannon/rigel-master/internal/telshm"
)

// CommandSubmitter injects one command line into a device's command
// queue, exactly as if it had arrived on that device's fifo. device is
// one of "tel", "dome", "focus".
type CommandSubmitter func(device, line string) error

// Server holds the HTTP server and its dependencies.
type Server struct {
	router    *chi.Mux
	publisher *telshm.Publisher
	authSvc   *opauth.Service
	cfg       config.APIConfig
	submit    CommandSubmitter

	upgrader websocket.Upgrader
}

// New assembles the router. An empty JWT secret leaves the login and
// admin routes unregistered; a nil submit leaves them registered but
// answering 503.
func New(cfg config.APIConfig, pub *telshm.Publisher, submit CommandSubmitter) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		publisher: pub,
		cfg:       cfg,
		submit:    submit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Status is not secret; the admin surface is what the JWT guards.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if cfg.JWTSecret != "" {
		s.authSvc = opauth.NewService(opauth.Config{
			JWTSecret:     cfg.JWTSecret,
			TokenDuration: time.Duration(cfg.TokenHours) * time.Hour,
		})
	}
	s.setupRoutes()
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("status API listening on :%d", s.cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/status", s.handleGetStatus)
	r.Get("/status/stream", s.handleStatusStream)

	if s.authSvc != nil {
		r.Post("/auth/login", s.handleLogin)
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/stop", s.handleStop)
			r.Post("/reset", s.handleReset)
		})
	}
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.publisher.Snapshot())
}

// handleStatusStream upgrades to a websocket and pushes one frame per
// publish. A slow client drops frames rather than backing up the daemon.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	frames, unsubscribe := s.publisher.Subscribe(8)
	defer unsubscribe()

	// Reader goroutine only to detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case snap, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username != s.cfg.AdminUser || s.cfg.AdminPassHash == "" {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := s.authSvc.ComparePassword(s.cfg.AdminPassHash, req.Password); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := s.authSvc.GenerateToken(req.Username, opauth.RoleAdmin)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		var token string
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		} else {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		claims, err := s.authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// handleStop issues an out-of-band stop to every device, the network
// analog of typing "stop" into each fifo.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(claimsKey{}).(*opauth.Claims)
	if claims == nil || !opauth.CanStop(claims.Role) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if s.submit == nil {
		http.Error(w, "Command submission not wired", http.StatusServiceUnavailable)
		return
	}
	for _, device := range []string{"tel", "dome", "focus"} {
		if err := s.submit(device, "stop"); err != nil {
			log.Printf("admin stop: %s: %v", device, err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(claimsKey{}).(*opauth.Claims)
	if claims == nil || !opauth.CanStop(claims.Role) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if s.submit == nil {
		http.Error(w, "Command submission not wired", http.StatusServiceUnavailable)
		return
	}
	for _, device := range []string{"tel", "dome", "focus"} {
		if err := s.submit(device, "reset"); err != nil {
			log.Printf("admin reset: %s: %v", device, err)
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
