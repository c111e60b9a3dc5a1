package bootstrap

import (
	"github.com/rs/zerolog"

	"lectern/internal/audio"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/ports"
	"lectern/internal/providers/lemonfox"
	"lectern/internal/providers/openai"
	"lectern/internal/recordings"
	"lectern/internal/server"
	"lectern/internal/settings"
	"lectern/internal/storage"
	"lectern/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Config config.Config
	Logger zerolog.Logger

	Store      *storage.SQLiteStore
	Settings   *settings.Store
	Recordings *recordings.Store

	Controller *usecase.RecordingController
	Pipeline   *usecase.Pipeline
	TestPrep   *usecase.TestPrepService
}

// Build loads configuration and wires all dependencies for the current
// runtime. Callers must Close the returned services.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWith(cfg, logging.New(cfg.Log, nil), eventSink)
}

// BuildWith wires dependencies from an already loaded configuration.
func BuildWith(cfg config.Config, log zerolog.Logger, eventSink ports.EventSink) (Services, error) {
	if eventSink == nil {
		eventSink = usecase.NopEventSink{}
	}

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return Services{}, err
	}

	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
		OutputDir:   cfg.Audio.Dir,
		Format:      cfg.Audio.Format,
	}

	settingsStore := settings.NewStore(store, log)
	recordingStore := recordings.NewStore(store, log)

	llm := openai.NewClient(openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
	transcriber := lemonfox.NewClient(lemonfox.Config{
		APIKey:   cfg.Lemonfox.APIKey,
		URL:      cfg.Lemonfox.URL,
		Language: cfg.Lemonfox.Language,
	})

	controller := usecase.NewRecordingController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		audio.NewPermissionProbe(cfg.Audio.RecorderCommand, audioCfg),
		settingsStore,
		eventSink,
		audioCfg,
		log,
	)
	pipeline := usecase.NewPipeline(
		transcriber,
		llm,
		eventSink,
		usecase.PipelineConfig{StageTimeout: cfg.Pipeline.StageTimeout},
		log,
	)

	return Services{
		Config:     cfg,
		Logger:     log,
		Store:      store,
		Settings:   settingsStore,
		Recordings: recordingStore,
		Controller: controller,
		Pipeline:   pipeline,
		TestPrep:   usecase.NewTestPrepService(llm, cfg.Pipeline.StageTimeout, log),
	}, nil
}

// NewServer builds the backend HTTP service over the wired pipeline.
func (s Services) NewServer() *server.Server {
	return server.New(s.Config.Server, s.Pipeline, s.TestPrep, s.Logger)
}

// Close releases the document store.
func (s Services) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
