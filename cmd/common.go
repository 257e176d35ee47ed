/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/valpere/bolcha/internal/cache"
	"github.com/valpere/bolcha/internal/endpoint"
	"github.com/valpere/bolcha/internal/orchestrator"
	"github.com/valpere/bolcha/internal/queue"
	"github.com/valpere/bolcha/internal/scheduler"
	"github.com/valpere/bolcha/internal/store"
	"github.com/valpere/bolcha/internal/translator"
	"github.com/valpere/bolcha/internal/validator"
)

// core is the translation pipeline shared by the commands.
type core struct {
	store    *store.Store
	registry *endpoint.Registry
	queue    *queue.Service
	sched    *scheduler.Scheduler
}

func openStore() (*store.Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// buildBackend routes google:// endpoints to Cloud Translation and everything
// else to the HTTP protocol.
func buildBackend() translator.Backend {
	opts := []translator.HTTPOption{translator.WithLogger(logger)}
	if cfg.ValidateOutput {
		opts = append(opts, translator.WithValidator(validator.New()))
	}

	return translator.NewRouter(translator.NewHTTPBackend(cfg.RequestTimeout, opts...)).
		Handle(translator.SchemeGoogle, translator.NewGoogleBackend(translator.ServiceConfig{
			Credentials: cfg.GoogleCredentials,
			ProjectID:   cfg.GoogleProject,
			Timeout:     cfg.RequestTimeout,
		}))
}

func buildCore(ctx context.Context) (*core, error) {
	db, err := openStore()
	if err != nil {
		return nil, err
	}

	reg := endpoint.NewRegistry(nil, logger)
	reg.ConfigureEndpoints(cfg.Endpoints)
	if len(reg.Active()) == 0 {
		logger.Warn("no translation endpoints configured, translations will be unavailable")
	}

	session := cfg.Session
	if session == "" {
		session = uuid.New().String()
	}
	tc := cache.New(db, session, logger)
	if err := tc.Restore(ctx); err != nil {
		logger.WithError(err).Warn("failed to restore session cache")
	}

	orch := orchestrator.New(reg, buildBackend(), logger)
	q := queue.New(orch, tc, queue.Config{Delay: cfg.QueueDelay}, logger)

	return &core{
		store:    db,
		registry: reg,
		queue:    q,
		sched:    scheduler.New(db, q, cfg.BackfillLimit, logger),
	}, nil
}

func (c *core) Close() {
	c.queue.Close()
	c.store.Close()
}
