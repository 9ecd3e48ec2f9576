// Package app wires the FAQ service components from configuration. The
// HTTP server and the operator CLI share it.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/yuh2k/FAQ-system/internal/chat"
	"github.com/yuh2k/FAQ-system/internal/compose"
	"github.com/yuh2k/FAQ-system/internal/config"
	"github.com/yuh2k/FAQ-system/internal/kb"
	"github.com/yuh2k/FAQ-system/internal/llm"
	"github.com/yuh2k/FAQ-system/internal/rules"
	"github.com/yuh2k/FAQ-system/internal/store"
)

// App bundles the long-lived components.
type App struct {
	Config *config.Config
	Repo   store.Repository
	Rules  *rules.Store
	KB     *kb.Service
	LLM    llm.Client
	Chat   *chat.Service
}

// Build opens the database, loads the rules and the knowledge base and
// constructs the chat service.
func Build(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rs, err := rules.NewStore(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	r := rs.Current()
	logger.Info("Rules loaded", "source", r.Source)

	kbSvc, err := kb.NewService(KnowledgeBaseConfig(cfg, r))
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	logger.Info("Knowledge base loaded", "name", kbSvc.Name(), "pairs", len(kbSvc.Pairs()))

	rs.OnReload(func(r *rules.Rules) {
		if err := kbSvc.Configure(KnowledgeBaseConfig(cfg, r)); err != nil {
			logger.Error("Failed to apply knowledge base registry", "error", err)
		}
	})

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client := llm.New(llm.Config{
		Enabled:    cfg.LLM.Enabled,
		Endpoint:   cfg.LLM.Endpoint,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	})

	convLog, err := chat.NewConversationLogger(chat.ConversationLogConfig{
		Enabled:    cfg.ConversationLog.Enabled,
		Path:       cfg.ConversationLog.Path,
		QueueSize:  cfg.ConversationLog.QueueSize,
		MaxSizeMB:  cfg.ConversationLog.MaxSizeMB,
		MaxBackups: cfg.ConversationLog.MaxBackups,
		MaxAgeDays: cfg.ConversationLog.MaxAgeDays,
	}, logger)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("open conversation log: %w", err)
	}

	svc := chat.NewService(repo, rs, kbSvc, client, chat.Options{
		AdvisoryEnabled: cfg.Advisory.Enabled && cfg.LLM.Enabled,
		AdvisoryTimeout: cfg.Advisory.Timeout,
		Picker:          compose.NewRandPicker(cfg.RandomSeed),
		Logger:          convLog,
	})

	return &App{
		Config: cfg,
		Repo:   repo,
		Rules:  rs,
		KB:     kbSvc,
		LLM:    client,
		Chat:   svc,
	}, nil
}

// KnowledgeBaseConfig derives the knowledge base settings from the process
// config and a rules snapshot. KB_NAME overrides the primary from the rules.
func KnowledgeBaseConfig(cfg *config.Config, r *rules.Rules) kb.Config {
	primary := r.KnowledgeBase.Primary
	if cfg.KnowledgeBase.Name != "" {
		primary = cfg.KnowledgeBase.Name
	}
	return kb.Config{
		Dir:       cfg.KnowledgeBase.Dir,
		Available: r.KnowledgeBase.Available,
		Primary:   primary,
		Threshold: r.KnowledgeBase.SimilarityThreshold,
		StopWords: r.KnowledgeBase.StopWords,
	}
}

// Reload re-reads the rules file, which also applies the new knowledge base
// registry, then re-reads the active knowledge base file. A failed rules
// reload changes nothing.
func (a *App) Reload() (*rules.Rules, error) {
	r, err := a.Rules.Reload()
	if err != nil {
		return nil, err
	}
	if err := a.KB.Reload(); err != nil {
		return r, fmt.Errorf("reload knowledge base: %w", err)
	}
	return r, nil
}

// Close flushes the conversation log and closes the database.
func (a *App) Close() error {
	return errors.Join(a.Chat.Close(), a.Repo.Close())
}
