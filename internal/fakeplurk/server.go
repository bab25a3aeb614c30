package fakeplurk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/dgnsrekt/plurk-comet/internal/api"
	"github.com/dgnsrekt/plurk-comet/internal/comet"
	"github.com/dgnsrekt/plurk-comet/internal/config"
)

// Server answers the Plurk endpoints the CLI talks to.
type Server struct {
	hub     *Hub
	config  *config.ServerConfig
	session string
	logger  *zap.Logger
}

func NewServer(hub *Hub, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		hub:     hub,
		config:  cfg,
		session: strconv.FormatInt(time.Now().UnixMilli(), 10),
		logger:  logger,
	}
}

func NewRouter(server *Server, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(zapLoggerMiddleware(logger))

	// OAuth-signed API routes
	r.Group(func(apiRouter chi.Router) {
		apiRouter.Use(requireOAuth)

		apiRouter.Post(comet.PathUserChannel, server.HandleUserChannel)
		apiRouter.Post("/APP/Users/me", server.HandleMe)
		apiRouter.Post("/APP/Polling/getPlurks", server.HandleGetPlurks)
		apiRouter.Post("/APP/Profile/getPublicProfile", server.HandlePublicProfile)
	})

	// Comet routes
	r.Get("/comet/{session}/comet", server.HandlePoll)
	r.Get("/_comet/generic", server.HandleKnock)

	return gzhttp.GzipHandler(r)
}

func requireOAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("requestID", middleware.GetReqID(r.Context())),
			)
			next.ServeHTTP(w, r)
		})
	}
}

type userChannelResponse struct {
	ChannelName string `json:"channel_name"`
	CometServer string `json:"comet_server"`
}

// HandleUserChannel handles POST /APP/Realtime/getUserChannel
func (s *Server) HandleUserChannel(w http.ResponseWriter, r *http.Request) {
	name := s.hub.Open()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	cometServer := fmt.Sprintf("%s://%s/comet/%s/?channel=%s&offset=0",
		scheme, r.Host, s.session, url.QueryEscape(name))

	s.logger.Debug("channel handed out",
		zap.String("channel", name),
		zap.String("cometServer", cometServer),
	)
	writeJSON(w, s.logger, userChannelResponse{ChannelName: name, CometServer: cometServer})
}

// HandlePoll handles GET /comet/{session}/comet. It holds the request until
// the channel has events past offset or the hold time runs out.
func (s *Server) HandlePoll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	name := query.Get("channel")
	if name == "" {
		http.Error(w, "missing channel", http.StatusBadRequest)
		return
	}
	offset, err := strconv.ParseInt(query.Get("offset"), 10, 64)
	if err != nil {
		http.Error(w, "invalid offset", http.StatusBadRequest)
		return
	}

	hold := time.NewTimer(s.config.Hold)
	defer hold.Stop()

	for {
		result, wake, err := s.hub.Since(name, offset)
		if errors.Is(err, ErrUnknownChannel) {
			http.Error(w, "unknown channel", http.StatusNotFound)
			return
		}
		if offset < 0 {
			offset = result.NewOffset
		}
		if len(result.Events) > 0 {
			s.writeFrame(w, result)
			return
		}

		select {
		case <-wake:
		case <-hold.C:
			s.writeFrame(w, result)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeFrame(w http.ResponseWriter, result comet.PollResult) {
	payload, err := comet.Encode(result)
	if err != nil {
		s.logger.Error("failed to encode poll result", zap.Error(err))
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(comet.Frame(payload)); err != nil {
		s.logger.Debug("poll client went away", zap.Error(err))
	}
}

// HandleKnock handles GET /_comet/generic
func (s *Server) HandleKnock(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("channel")
	if err := s.hub.Knock(name); err != nil {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(comet.Frame([]byte("{}")))
}

// HandleMe handles POST /APP/Users/me
func (s *Server) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := s.hub.User(s.config.UserID)
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, s.logger, u)
}

// HandleGetPlurks handles POST /APP/Polling/getPlurks
func (s *Server) HandleGetPlurks(w http.ResponseWriter, r *http.Request) {
	since, err := time.Parse(time.RFC3339, r.FormValue("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}
	writeJSON(w, s.logger, s.hub.Timeline(since))
}

// HandlePublicProfile handles POST /APP/Profile/getPublicProfile
func (s *Server) HandlePublicProfile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	u, ok := s.hub.User(id)
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, s.logger, api.Profile{UserInfo: u})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.StatusError{Message: text})
}
