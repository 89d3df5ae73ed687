package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cryptonics/config"
	"cryptonics/internal/currency"
	"cryptonics/internal/market"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 15 * time.Second

// Deps are the collaborators the server routes to. Upstream, Storage and
// Stream are optional.
type Deps struct {
	Market   *market.Service
	Store    currency.Store
	Upstream Pinger
	Storage  HealthChecker
	Stream   http.Handler
	Logger   *zap.Logger
}

type Server struct {
	cfg      config.ServerConfig
	market   *market.Service
	store    currency.Store
	upstream Pinger
	storage  HealthChecker
	stream   http.Handler
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = currency.NewMemoryStore()
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "cryptonics_session"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		cfg:      cfg,
		market:   deps.Market,
		store:    deps.Store,
		upstream: deps.Upstream,
		storage:  deps.Storage,
		stream:   deps.Stream,
		logger:   deps.Logger.Named("web"),
	}

	engine, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

func (s *Server) routes() (*gin.Engine, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.HTMLRender = templates
	r.Use(RequestLogger(s.logger), Recovery(), SecureHeaders())

	if s.cfg.RateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(s.cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", s.cfg.RateLimit, err)
		}
		r.Use(RateLimit(limiter.New(memory.NewStore(), rate)))
	}

	r.GET("/health", s.health)
	if s.stream != nil {
		r.GET("/ws/prices", gin.WrapH(s.stream))
	}

	session := Session(s.store, s.cfg.SessionCookie, s.cfg.SecureCookie)

	pages := r.Group("/", session)
	{
		pages.GET("/", s.homePage)
		pages.GET("/coins", s.coinsPage)
		pages.GET("/coins/:id", s.coinPage)
		pages.GET("/exchanges", s.exchangesPage)
		pages.POST("/currency", s.setCurrency)
	}

	api := r.Group("/api/v1", CORS(s.cfg.AllowedOrigins), session)
	{
		api.GET("/coins", s.apiCoins)
		api.GET("/coins/:id", s.apiCoinDetails)
		api.GET("/coins/:id/chart", s.apiCoinChart)
		api.GET("/exchanges", s.apiExchanges)
		api.GET("/trending", s.apiTrending)
		api.GET("/global", s.apiGlobal)
		api.GET("/search", s.apiSearch)
		api.GET("/currency", s.apiGetCurrency)
		api.PUT("/currency", s.apiPutCurrency)
		// preflight; the CORS middleware answers before this runs
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	r.NoRoute(session, func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, ErrorView{Title: "Page Not Found", Message: "The page you are looking for does not exist."})
	})

	return r, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("gracefully shut down the server")
	return nil
}
