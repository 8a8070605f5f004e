package main

import (
	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
