// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/AleutianAI/noetic/pkg/logging"
	"github.com/AleutianAI/noetic/services/mind"
	"github.com/AleutianAI/noetic/services/mind/activity"
	"github.com/AleutianAI/noetic/services/mind/config"
	"github.com/AleutianAI/noetic/services/mind/infer"
	"github.com/AleutianAI/noetic/services/mind/lock"
	"github.com/AleutianAI/noetic/services/mind/memory"
	"github.com/AleutianAI/noetic/services/mind/storage/badger"
)

// runtime bundles everything a command needs: the configured mind, its
// store, and the handles to release on exit.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	logClose func() error
	store    *memory.Store
	mem      *memory.Memory
	mind     *mind.Mind
	recorder *activity.Recorder
	guard    *lock.Guard
}

// openRuntime loads config, acquires the repository lock, opens the
// store, and wakes the mind with a learn pass. reason labels the lock
// holder for diagnostics.
func openRuntime(ctx context.Context, reason string) (*runtime, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}

	logger, logClose, err := logging.New(logging.Config{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	guard, err := lock.Acquire(cfg.Repository.Path, reason, lock.DefaultConfig())
	if err != nil {
		logClose()
		return nil, err
	}

	storeCfg := badger.DefaultConfig()
	storeCfg.Path = cfg.Repository.Path
	store, err := memory.OpenStore(storeCfg)
	if err != nil {
		guard.Release()
		logClose()
		return nil, err
	}

	mem := memory.New(store, logger)
	mem.SetTimeScope(memory.TimeScope{
		Enabled: cfg.Mind.TimeScopeEnabled,
		Horizon: cfg.Mind.TimeScopeHorizon.Std(),
	})
	engine, err := buildEngine(cfg, mem, logger)
	if err != nil {
		store.Close()
		guard.Release()
		logClose()
		return nil, err
	}

	recorder := activity.NewRecorder(activity.Config{
		URL:    cfg.Activity.URL,
		Token:  cfg.Activity.Token,
		Org:    cfg.Activity.Org,
		Bucket: cfg.Activity.Bucket,
	}, logger)

	m := mind.New(mem, engine, mind.Options{
		Config:        cfg,
		DwellCapacity: cfg.Mind.DwellCapacity,
		Recorder:      recorder,
		Logger:        logger,
	})

	if out, err := m.Learn(ctx); err != nil {
		store.Close()
		guard.Release()
		logClose()
		return nil, err
	} else if denial, denied := out.Denial(); denied {
		store.Close()
		guard.Release()
		logClose()
		return nil, fmt.Errorf("mind refused to learn: %s", denial.Reason)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		logClose: logClose,
		store:    store,
		mem:      mem,
		mind:     m,
		recorder: recorder,
		guard:    guard,
	}, nil
}

func (r *runtime) close() {
	r.recorder.Close()
	if err := r.store.Close(); err != nil {
		r.logger.Warn("store close failed",
			slog.String("component", "cli"),
			slog.String("error", err.Error()))
	}
	if err := r.guard.Release(); err != nil {
		r.logger.Warn("lock release failed",
			slog.String("component", "cli"),
			slog.String("error", err.Error()))
	}
	r.logClose()
}

// buildEngine selects the inference backend per the configuration.
func buildEngine(cfg *config.Config, mem *memory.Memory, logger *slog.Logger) (infer.Engine, error) {
	inf := cfg.Inference
	switch inf.Provider {
	case "openai":
		key, err := cfg.OpenAIKey()
		if err != nil {
			return nil, err
		}
		return infer.NewOpenAI(mem, key, openAIConfig(cfg), logger)

	case "weaviate":
		// Weaviate stores and queries vectors; the embeddings themselves
		// still come from the OpenAI provider.
		key, err := cfg.OpenAIKey()
		if err != nil {
			return nil, err
		}
		embedder, err := infer.NewOpenAI(mem, key, openAIConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		client, err := weaviate.NewClient(weaviate.Config{
			Host:   inf.Weaviate.Host,
			Scheme: inf.Weaviate.Scheme,
		})
		if err != nil {
			return nil, fmt.Errorf("weaviate client: %w", err)
		}
		return infer.NewWeaviate(mem, client, embedder, infer.WeaviateConfig{
			SimilarityFloor: inf.SimilarityFloor,
			TopK:            inf.TopK,
		}, logger)

	case "local", "":
		return infer.NewLocal(mem, infer.LocalConfig{
			SimilarityFloor: inf.SimilarityFloor,
			TopK:            inf.TopK,
		}, logger), nil
	}
	return nil, fmt.Errorf("unknown inference provider %q", inf.Provider)
}

func openAIConfig(cfg *config.Config) infer.OpenAIConfig {
	inf := cfg.Inference
	return infer.OpenAIConfig{
		Model:           openai.EmbeddingModel(inf.OpenAI.Model),
		BaseURL:         inf.OpenAI.BaseURL,
		SimilarityFloor: inf.SimilarityFloor,
		TopK:            inf.TopK,
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultFileName
}
