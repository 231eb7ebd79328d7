package shortener

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	// RatePerSec and Burst bound requests per client address. Defaults: 10/20.
	RatePerSec int
	Burst      int
}

// Server exposes the shortener over HTTP.
type Server struct {
	cfg   ServerConfig
	store *Store

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewServer builds a server with the provided configuration, applying
// defaults for unset fields.
func NewServer(cfg ServerConfig, store *Store) (*Server, error) {
	if store == nil {
		return nil, errors.New("shortener: store cannot be nil")
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

type shortenRequest struct {
	URL        string `json:"url"`
	ExpiryDays int    `json:"expiryDays"`
}

// Handler returns the routed HTTP handler, rate limited per client address.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /shorten", s.handleShorten)
	mux.HandleFunc("GET /r/{code}", s.handleRedirect)
	mux.HandleFunc("GET /stats/{code}", s.handleStats)
	return s.rateLimit(mux)
}

func (s *Server) handleShorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		http.Error(w, "url must be absolute http(s)", http.StatusBadRequest)
		return
	}
	entry, err := s.store.Create(r.Context(), req.URL, req.ExpiryDays)
	if err != nil {
		log.Error().Err(err).Msg("shortener: create failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	log.Info().Str("code", entry.Code).Str("url", entry.OriginalURL).Msg("shortener: url created")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	entry, err := s.store.Get(r.Context(), code)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "shortcode not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("shortener: lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entry.Expired(time.Now()) {
		http.Error(w, "url expired", http.StatusGone)
		return
	}
	if err := s.store.RecordVisit(r.Context(), code); err != nil {
		// Analytics must not block the redirect.
		log.Error().Err(err).Str("code", code).Msg("shortener: record visit failed")
	}
	http.Redirect(w, r, entry.OriginalURL, http.StatusTemporaryRedirect)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	entry, err := s.store.Get(r.Context(), code)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "shortcode not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("shortener: stats lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(clientAddr(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allow(addr string) bool {
	s.limiterMu.Lock()
	limiter, ok := s.limiters[addr]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSec), s.cfg.Burst)
		s.limiters[addr] = limiter
	}
	s.limiterMu.Unlock()
	return limiter.Allow()
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
