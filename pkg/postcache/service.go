package postcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const defaultFetchInterval = 15 * time.Minute

// Config controls Service behavior.
type Config struct {
	// UpstreamURL is the posts endpoint to mirror.
	UpstreamURL string
	// FetchInterval is how often the cache refreshes. Defaults to 15m.
	FetchInterval time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Service periodically fetches upstream posts into the store and serves the
// cached entries over HTTP.
type Service struct {
	cfg    Config
	store  *Store
	client *http.Client
}

// NewService builds a service with the provided configuration, applying
// defaults for unset fields.
func NewService(cfg Config, store *Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("postcache: store cannot be nil")
	}
	if cfg.UpstreamURL == "" {
		return nil, errors.New("postcache: upstream URL cannot be empty")
	}
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = defaultFetchInterval
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{cfg: cfg, store: store, client: client}, nil
}

// Refresh fetches the upstream posts once and stores the unseen ones.
func (s *Service) Refresh(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.UpstreamURL, nil)
	if err != nil {
		return errors.Wrap(err, "postcache: build upstream request failed")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "postcache: fetch upstream posts failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("postcache: upstream returned status %d", resp.StatusCode)
	}
	var posts []Post
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return errors.Wrap(err, "postcache: decode upstream posts failed")
	}
	inserted, err := s.store.InsertNew(ctx, posts, time.Now())
	if err != nil {
		return err
	}
	log.Info().
		Int("fetched", len(posts)).
		Int("inserted", inserted).
		Msg("postcache: refresh completed")
	return nil
}

// Start refreshes immediately, then keeps refreshing on the configured
// interval until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("postcache: context cannot be nil")
	}
	// Fast-start: refresh once instead of waiting for the first tick.
	if err := s.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("postcache: initial refresh failed")
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.FetchInterval)
	if _, err := c.AddFunc(spec, func() {
		if err := s.Refresh(context.Background()); err != nil {
			log.Error().Err(err).Msg("postcache: scheduled refresh failed")
		}
	}); err != nil {
		return errors.Wrapf(err, "postcache: schedule %q failed", spec)
	}
	c.Start()
	log.Info().Str("interval", s.cfg.FetchInterval.String()).Msg("postcache: started")

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

// Handler serves the cached posts: GET /posts returns the 10 most recent.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		posts, err := s.store.Recent(r.Context(), 10)
		if err != nil {
			log.Error().Err(err).Msg("postcache: load recent posts failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if posts == nil {
			posts = []Post{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(posts); err != nil {
			log.Error().Err(err).Msg("postcache: encode posts failed")
		}
	})
	return mux
}
