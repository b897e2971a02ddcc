package server

import (
	"net/http"

	"authdemo/internal/config"
	"authdemo/internal/handler"
	"authdemo/internal/middleware"
	"authdemo/internal/repository"
	"authdemo/internal/service"
	"authdemo/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	logger *zap.Logger
	log    *logrus.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger, log *logrus.Logger) *Server {
	router := gin.Default()
	router.LoadHTMLGlob(cfg.Server.Templates)

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		logger: logger,
		log:    log,
	}

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Initialize Auth components
	userRepo := repository.NewUserRepository(s.db, s.log)
	freshness := session.NewFreshness()
	authService := service.NewAuthService(userRepo, freshness, s.cfg.Session.Secret, s.cfg.SessionMaxAge(), s.logger)

	cookie := middleware.SessionConfig{
		CookieName:     s.cfg.Session.CookieName,
		MaxAge:         s.cfg.SessionMaxAge(),
		UpdateInterval: s.cfg.SessionUpdateInterval(),
	}
	authHandler := handler.NewAuthHandler(authService, cookie, s.cfg.Server.BaseURL, s.log)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// The session middleware runs the claims refresh decision on every
	// request carrying a token cookie.
	s.router.Use(middleware.Session(authService, cookie, s.logger))

	// Pages
	s.router.GET("/", authHandler.Home)
	s.router.GET("/auth/signin", authHandler.SignInForm)
	s.router.POST("/auth/signin", authHandler.SignIn)
	s.router.GET("/auth/signout", authHandler.SignOutForm)
	s.router.POST("/auth/signout", authHandler.SignOut)

	protected := s.router.Group("/", middleware.RequireSession("/auth/signin"))
	{
		protected.GET("/profile", authHandler.Profile)
	}

	// Session API
	apiGroup := s.router.Group("/api/auth")
	{
		apiGroup.GET("/session", authHandler.Session)
		apiGroup.POST("/session", authHandler.UpdateSession)
		apiGroup.POST("/register", authHandler.Register)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
