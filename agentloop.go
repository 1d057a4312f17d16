// Package agentloop provides a high-level façade wiring a configuration value
// into a ready to use agent: a provider model, the demo tool catalog, a
// structured logger and a transcript recorder. Most applications interact
// with this package by:
//  1. Building a config.Config (config.Load / config.FromEnv / config.Default)
//  2. Creating an AgentLoop via New
//  3. Calling Run for a final answer or RunStream for incremental output
//
// Every dependency can be overridden through Options; unset services default
// to in-memory or no-op implementations that are safe for local development
// and tests.
package agentloop

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/model/anthropic"
	"github.com/hupe1980/agentloop/model/openai"
	"github.com/hupe1980/agentloop/tool"
	"github.com/hupe1980/agentloop/tool/funtools"
	"github.com/hupe1980/agentloop/transcript"
)

// Options configures the AgentLoop instance.
type Options struct {
	// Config is validated by New. Defaults to config.Default().
	Config *config.Config

	// Model overrides the provider model built from Config.
	Model model.Model

	// Tools replaces the demo tool set (funtools.All).
	Tools []tool.Tool

	// HTTPClient is used by the demo tools. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Store receives finished runs. Defaults to a SQLite store when
	// Config.TranscriptDB is set and to an in-memory store otherwise.
	Store transcript.Store

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Slog is adapted as the logger when Logger is nil.
	Slog *slog.Logger
}

// AgentLoop is the high-level façade aggregating agent, catalog and transcripts.
type AgentLoop struct {
	cfg       *config.Config
	agent     *agent.Agent
	catalog   *tool.Catalog
	store     transcript.Store
	ownsStore bool
	logger    logging.Logger
}

// New creates a new AgentLoop. The context is only used while opening the
// transcript database.
func New(ctx context.Context, optFns ...func(o *Options)) (*AgentLoop, error) {
	opts := Options{
		Config: config.Default(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil && opts.Slog != nil {
		logger = logging.NewSlogAdapter(opts.Slog)
	}
	logger = logging.OrNoOp(logger)

	m := opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(cfg); err != nil {
			return nil, err
		}
	}

	tools := opts.Tools
	if tools == nil {
		tools = funtools.All(func(o *funtools.Options) {
			if opts.HTTPClient != nil {
				o.HTTPClient = opts.HTTPClient
			}
		})
	}
	catalog, err := tool.NewCatalog(tools, func(o *tool.CatalogOptions) {
		o.Timeout = cfg.ToolTimeout
		o.Logger = logging.With(logger, "component", "tool")
	})
	if err != nil {
		return nil, err
	}

	store, owns := opts.Store, false
	if store == nil {
		if store, err = openStore(ctx, cfg); err != nil {
			return nil, err
		}
		owns = true
	}

	instruction := agent.NewInstructionFromText(agent.DefaultPersona)
	if cfg.SystemPrompt != "" {
		instruction = agent.NewInstructionFromTemplate(cfg.SystemPrompt)
	}

	a, err := agent.New(m, catalog, func(o *agent.Options) {
		o.Instruction = instruction
		o.MaxIterations = cfg.MaxIterations
		o.Streaming = cfg.Stream
		o.Logger = logging.With(logger, "component", "agent")
		o.Recorder = transcript.NewRecorder(store)
	})
	if err != nil {
		if owns {
			_ = store.Close()
		}
		return nil, err
	}

	logger.Info("agentloop.ready",
		"provider", m.Info().Provider,
		"model", m.Info().Name,
		"tools", catalog.Len(),
		"max_iterations", cfg.MaxIterations,
	)

	return &AgentLoop{
		cfg:       cfg,
		agent:     a,
		catalog:   catalog,
		store:     store,
		ownsStore: owns,
		logger:    logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (transcript.Store, error) {
	if cfg.TranscriptDB == "" {
		return transcript.NewInMemoryStore(), nil
	}
	s, err := transcript.OpenSQLite(ctx, cfg.TranscriptDB)
	if err != nil {
		return nil, fmt.Errorf("open transcripts: %w", err)
	}
	return s, nil
}

// NewModel builds the provider model described by cfg, resolving the API key
// through config.ResolveAPIKey.
func NewModel(cfg *config.Config) (model.Model, error) {
	key, err := config.ResolveAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		clientOpts := []openaiopt.RequestOption{
			openaiopt.WithAPIKey(key),
			openaiopt.WithMaxRetries(cfg.MaxRetries),
			openaiopt.WithRequestTimeout(cfg.ModelTimeout),
		}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, openaiopt.WithBaseURL(cfg.BaseURL))
		}
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.ClientOptions = clientOpts
		}), nil

	case config.ProviderAnthropic:
		clientOpts := []anthropicopt.RequestOption{
			anthropicopt.WithAPIKey(key),
			anthropicopt.WithMaxRetries(cfg.MaxRetries),
			anthropicopt.WithRequestTimeout(cfg.ModelTimeout),
		}
		if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultBaseURL {
			clientOpts = append(clientOpts, anthropicopt.WithBaseURL(cfg.BaseURL))
		}
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" && cfg.Model != config.DefaultModel {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.ClientOptions = clientOpts
		}), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Run answers one user message.
func (l *AgentLoop) Run(ctx context.Context, userMessage string, opts ...agent.RunOption) (agent.Result, error) {
	return l.agent.Run(ctx, userMessage, opts...)
}

// RunStream answers one user message incrementally.
func (l *AgentLoop) RunStream(ctx context.Context, userMessage string, opts ...agent.RunOption) *agent.RunStream {
	return l.agent.RunStream(ctx, userMessage, opts...)
}

// Agent returns the underlying agent.
func (l *AgentLoop) Agent() *agent.Agent { return l.agent }

// Catalog returns the tool catalog.
func (l *AgentLoop) Catalog() *tool.Catalog { return l.catalog }

// Transcripts returns the store finished runs are recorded to.
func (l *AgentLoop) Transcripts() transcript.Store { return l.store }

// Config returns the validated configuration.
func (l *AgentLoop) Config() *config.Config { return l.cfg }

// Close releases the transcript store when New opened it.
func (l *AgentLoop) Close() error {
	if !l.ownsStore {
		return nil
	}
	return l.store.Close()
}
