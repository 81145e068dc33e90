package middleware

import (
	"github.com/inam-1906/datock-website/internal/config"
	"github.com/inam-1906/datock-website/internal/logger"
)

// Middleware holds all HTTP middleware
type Middleware struct {
	log *logger.Logger
	cfg *config.Config
}

// New creates a new Middleware instance
func New(log *logger.Logger, cfg *config.Config) *Middleware {
	return &Middleware{
		log: log.WithComponent("http"),
		cfg: cfg,
	}
}
