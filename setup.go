package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/worklog/internal/config"
	"github.com/baalimago/worklog/internal/conversation"
	"github.com/baalimago/worklog/internal/session"
	"github.com/baalimago/worklog/internal/vendors/openai"
	"github.com/baalimago/worklog/internal/web"
	"github.com/baalimago/worklog/internal/worklog"
	"github.com/joho/godotenv"
)

const (
	configFileName = "worklogConfig.json"
	vendorFileName = "openai.json"
	janitorPeriod  = time.Minute
)

var errUserInitiatedExit = errors.New("user initiated exit")

// Configurations of the service itself, the model is configured in openai.json.
// EnvFile and SessionIdleMinutes are pointers so that "" and 0 are kept instead of
// being replaced by the defaults. An empty env file is not loaded, 0 idle minutes
// keeps sessions forever.
type Configurations struct {
	Addr               string  `json:"addr"`
	EnvFile            *string `json:"env-file"`
	SessionIdleMinutes *int    `json:"session-idle-minutes"`
}

var defaultConfig = Configurations{
	Addr:               "0.0.0.0:8080",
	EnvFile:            ptr(".env"),
	SessionIdleMinutes: ptr(120),
}

func ptr[T any](v T) *T {
	return &v
}

type app struct {
	conf   Configurations
	store  *session.Store
	server *web.Server
}

func setup(configDir string, args []string) (app, error) {
	flagged, err := parseFlags(args)
	if err != nil {
		fmt.Printf(usage, configDir, defaultConfig.Addr, openai.GptDefault.Model, openai.GptDefault.Temperature, *defaultConfig.EnvFile)
		return app{}, err
	}
	if flagged.help {
		fmt.Printf(usage, configDir, defaultConfig.Addr, openai.GptDefault.Model, openai.GptDefault.Temperature, *defaultConfig.EnvFile)
		return app{}, errUserInitiatedExit
	}
	if flagged.version {
		if err := printVersion(); err != nil {
			return app{}, err
		}
		return app{}, errUserInitiatedExit
	}

	conf, err := config.Load(configDir, configFileName, &defaultConfig)
	if err != nil {
		return app{}, fmt.Errorf("failed to load config: %w", err)
	}
	if flagged.addr != "" {
		conf.Addr = flagged.addr
	}
	if flagged.envFileSet {
		conf.EnvFile = ptr(flagged.envFile)
	}
	if err := loadEnvFile(*conf.EnvFile); err != nil {
		return app{}, err
	}

	gpt, err := config.Load(configDir, vendorFileName, &openai.GptDefault)
	if err != nil {
		return app{}, fmt.Errorf("failed to load model config: %w", err)
	}
	if flagged.chatModel != "" {
		gpt.Model = flagged.chatModel
	}
	if flagged.temperatureSet {
		gpt.Temperature = flagged.temperature
	}
	if gpt.Temperature < 0 || gpt.Temperature > 2 {
		return app{}, fmt.Errorf("temperature must be within [0, 2], got: %v", gpt.Temperature)
	}
	if err := gpt.Setup(); err != nil {
		return app{}, fmt.Errorf("failed to setup model: %w", err)
	}

	store := session.NewStore(conversation.NewDriver(&gpt, worklog.SystemPrompt))
	ancli.Noticef("using model: '%v', temperature: %v\n", gpt.Model, gpt.Temperature)
	return app{
		conf:   conf,
		store:  store,
		server: web.NewServer(store),
	}, nil
}

// loadEnvFile into the environment. Variables which are already set win. A missing
// file is fine, credentials may come from the environment directly.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file '%v': %w", path, err)
	}
	ancli.PrintOK(fmt.Sprintf("loaded environment from: '%v'\n", path))
	return nil
}

func (a app) run(ctx context.Context) error {
	if idle := *a.conf.SessionIdleMinutes; idle > 0 {
		go a.store.Janitor(ctx, janitorPeriod, time.Duration(idle)*time.Minute)
	} else {
		ancli.Noticef("idle sessions are never pruned\n")
	}
	return a.server.Serve(ctx, a.conf.Addr)
}
