package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intorma/torma/assist"
	"github.com/intorma/torma/internal/config"
	"github.com/intorma/torma/internal/gemini"
	"github.com/intorma/torma/internal/kv"
	"github.com/intorma/torma/internal/logging"
	"github.com/intorma/torma/internal/paths"
	"github.com/intorma/torma/task"
)

// app holds what a command needs, opened lazily and closed after Execute.
type app struct {
	cfg        *config.Config
	logger     *logrus.Logger
	location   *time.Location
	projectDir string

	backend kv.Backend
	store   *task.Store
	model   assist.Model

	closers []func()
}

var (
	current *app

	// nowFunc and newModel are replaced in tests.
	nowFunc  = time.Now
	newModel = func(ctx context.Context, a *app) (assist.Model, error) {
		client, err := gemini.New(ctx, gemini.Options{
			APIKey: a.cfg.APIKey(),
			Logger: a.logger.WithField("component", "gemini"),
		})
		if errors.Is(err, gemini.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: set %s", err, a.cfg.Assist.APIKeyEnv)
		}
		return client, err
	}
)

// loadApp loads configuration and the logger once per invocation. Global
// flags override config values.
func loadApp() (*app, error) {
	if current != nil {
		return current, nil
	}

	projectDir, err := paths.WorkingDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.Options{ProjectDir: projectDir, Path: globalConfigPath})
	if err != nil {
		return nil, err
	}
	if globalStorage != "" {
		cfg.Storage.Backend = globalStorage
	}
	if globalDataPath != "" {
		cfg.Storage.Path = globalDataPath
	}
	if globalLogLevel != "" {
		cfg.Log.Level = globalLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, cleanup, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	location, err := cfg.Location()
	if err != nil {
		cleanup()
		return nil, err
	}

	current = &app{
		cfg:        cfg,
		logger:     logger,
		location:   location,
		projectDir: projectDir,
		closers:    []func(){cleanup},
	}
	return current, nil
}

// closeApp releases everything loadApp and its helpers opened, newest
// first.
func closeApp() {
	if current == nil {
		return
	}
	for i := len(current.closers) - 1; i >= 0; i-- {
		current.closers[i]()
	}
	current = nil
}

func (a *app) today() task.Date {
	return task.DateOf(nowFunc().In(a.location))
}

// openStore opens the configured backend and the task store on it. watch
// enables reloading on external writes, which only long-running commands
// need.
func (a *app) openStore(ctx context.Context, watch bool) (*task.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	path, err := a.cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	backend, err := kv.Open(ctx, kv.Options{
		Backend:   a.cfg.Storage.Backend,
		Path:      path,
		RedisAddr: a.cfg.Storage.RedisAddr,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", a.cfg.Storage.Backend, err)
	}
	a.closers = append(a.closers, func() {
		if err := backend.Close(); err != nil {
			a.logger.WithError(err).Warn("close storage")
		}
	})

	store, err := task.Open(backend, task.Options{
		Key:    a.cfg.Storage.Key,
		Watch:  watch && a.cfg.Storage.Watch,
		Logger: a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			a.logger.WithError(err).Warn("close task store")
		}
	})

	a.backend = backend
	a.store = store
	return store, nil
}

// assistOptions builds the flow options around the configured model.
func (a *app) assistOptions(ctx context.Context) (assist.Options, error) {
	if a.model == nil {
		model, err := newModel(ctx, a)
		if err != nil {
			return assist.Options{}, err
		}
		a.model = model
	}

	timeout := a.cfg.Assist.Timeout.Duration
	if timeout == 0 {
		timeout = -1
	}
	return assist.Options{
		Model:          a.model,
		TextModel:      a.cfg.Assist.TextModel,
		SpeechModel:    a.cfg.Assist.SpeechModel,
		ImageModel:     a.cfg.Assist.ImageModel,
		Timeout:        timeout,
		Location:       a.location,
		Now:            nowFunc,
		WebSearch:      a.cfg.Assist.WebSearch,
		ManagerVoice:   a.cfg.Assist.ManagerVoice,
		AssistantVoice: a.cfg.Assist.AssistantVoice,
		NarratorVoice:  a.cfg.Assist.NarratorVoice,
		TemplatesDir:   paths.TemplatesDir(a.projectDir),
		Logger:         a.logger,
	}, nil
}

// openStoreCmd is the common prologue of commands that only need the store.
func openStoreCmd(ctx context.Context) (*app, *task.Store, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	store, err := a.openStore(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	return a, store, nil
}
