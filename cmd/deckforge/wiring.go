package main

import (
	"fmt"

	"github.com/swstevens/agentic-cag-system/internal/agent"
	"github.com/swstevens/agentic-cag-system/internal/cache"
	"github.com/swstevens/agentic-cag-system/internal/config"
	"github.com/swstevens/agentic-cag-system/internal/embedding"
	"github.com/swstevens/agentic-cag-system/internal/executor"
	"github.com/swstevens/agentic-cag-system/internal/intent"
	"github.com/swstevens/agentic-cag-system/internal/llm"
	"github.com/swstevens/agentic-cag-system/internal/orchestrator"
	"github.com/swstevens/agentic-cag-system/internal/repository"
	"github.com/swstevens/agentic-cag-system/internal/store"
	"github.com/swstevens/agentic-cag-system/internal/vector"
	"github.com/swstevens/agentic-cag-system/internal/verifier"
)

// core bundles the wired components a command needs.
type core struct {
	cfg   config.Config
	store *store.CardStore
	vec   *vector.Store
	repo  *repository.Repository
	orch  *orchestrator.Orchestrator
}

// openCore wires the retrieval substrate and, unless storeOnly, the agent
// stack. Missing LLM credentials degrade gracefully: the vector store
// runs disabled (text-search fallback) and agent failures produce the
// deterministic fallback deck.
func openCore(storeOnly bool) (*core, func(), error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, nil, err
	}

	cardStore, err := store.Open(cfg.Store.CardDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open card store: %w", err)
	}

	var engine embedding.Engine
	if cfg.Embedding.APIKey != "" {
		engine, err = embedding.NewEngine(cfg.Embedding)
		if err != nil {
			logger.Sugar().Warnf("embedding engine unavailable, semantic search disabled: %v", err)
			engine = nil
		}
	} else {
		logger.Sugar().Debug("no embedding credentials, semantic search disabled")
	}

	vecStore, err := vector.Open(cfg.Store.VectorDBPath, engine)
	if err != nil {
		cardStore.Close()
		return nil, nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	repo := repository.New(cardStore, vecStore, cache.New(cfg.Cache.MaxSize))

	c := &core{cfg: cfg, store: cardStore, vec: vecStore, repo: repo}
	cleanup := func() {
		_ = vecStore.Close()
		_ = cardStore.Close()
	}

	if storeOnly {
		return c, cleanup, nil
	}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		client, err = llm.NewClient(cfg.LLM)
		if err != nil {
			logger.Sugar().Warnf("LLM client unavailable, agent runs will use fallbacks: %v", err)
			client = nil
		}
	} else {
		logger.Sugar().Warn("no LLM credentials configured; builds fall back to basic-land decks")
	}

	builderAgent := agent.New(client, repo)
	exec := executor.New(repo)
	verify := verifier.New(client)
	parser := intent.New(client)

	c.orch = orchestrator.New(builderAgent, exec, verify, parser)
	return c, cleanup, nil
}
