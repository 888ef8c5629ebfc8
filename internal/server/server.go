// Package server wires the gin engine, middleware stack and route table.
package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/config"
	"github.com/askerp/askerp-server/internal/server/validator"
	v1 "github.com/askerp/askerp-server/internal/server/v1"
	"github.com/askerp/askerp-server/internal/store"
)

type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  *zap.Logger
	repo    store.Repository
	handler *v1.Handler
}

func New(cfg *config.Config, logger *zap.Logger, repo store.Repository, handler *v1.Handler) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.Init()

	engine := gin.New()
	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))

	s := &Server{
		router:  engine,
		config:  cfg,
		logger:  logger,
		repo:    repo,
		handler: handler,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
