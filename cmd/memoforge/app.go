package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dusk-indust/memoforge/internal/catalog"
	"github.com/dusk-indust/memoforge/internal/config"
	"github.com/dusk-indust/memoforge/internal/export"
	"github.com/dusk-indust/memoforge/internal/llm"
	"github.com/dusk-indust/memoforge/internal/logging"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/dusk-indust/memoforge/internal/validator"
	"go.uber.org/zap"
)

// app holds what every command needs: settings, a logger and the catalog
// of document types.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
}

// loadApp reads settings and the catalog. It does not touch the network.
func loadApp() (*app, error) {
	path := configPath
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		path = config.Find(wd)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(cfg.Log.Logger())
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Catalog.Dir != "" {
		if err := cat.Merge(cfg.Catalog.Dir); err != nil {
			return nil, fmt.Errorf("loading catalog %s: %w", cfg.Catalog.Dir, err)
		}
	}

	if path != "" {
		logger.Debug("config loaded", zap.String("path", path))
	}
	return &app{cfg: cfg, logger: logger, catalog: cat}, nil
}

func (a *app) close() {
	_ = logging.Sync(a.logger)
}

func (a *app) validator() *validator.Validator {
	return validator.New(validator.Config{
		RedundancyThreshold: a.cfg.Validator.RedundancyThreshold,
		MinParagraphChars:   a.cfg.Validator.MinParagraphChars,
	}, a.logger)
}

// index opens the passage index. It returns nil when no embedding model is
// configured, which disables retrieval.
func (a *app) index() (*retrieval.ChromemIndex, error) {
	if a.cfg.Embedding.Model == "" {
		return nil, nil
	}
	embedder, err := retrieval.NewEmbedder(a.cfg.Embedding.Embedder())
	if err != nil {
		return nil, err
	}
	return retrieval.NewChromemIndex(a.cfg.Index.Chromem(), embedder, a.logger)
}

// service wires the completion model, the index and the catalog into an
// orchestrator.Service.
func (a *app) service(onProgress func(orchestrator.ProgressEvent)) (*orchestrator.Service, error) {
	completer, err := llm.New(a.cfg.LLM.Client(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("configuring %s model: %w", a.cfg.LLM.Provider, err)
	}

	deps := orchestrator.ServiceDeps{
		Completer:  completer,
		TopK:       a.cfg.Index.TopK,
		Validator:  a.validator(),
		Config:     a.cfg.Orchestrator.Run(),
		OnProgress: onProgress,
		Logger:     a.logger,
	}
	idx, err := a.index()
	if err != nil {
		return nil, err
	}
	if idx != nil {
		deps.Searcher = idx
	} else {
		a.logger.Debug("retrieval disabled: no embedding model configured")
	}
	return orchestrator.NewService(a.catalog, deps)
}

// printProgress writes every event of ch to w until ch is closed. The
// returned function blocks until the last event is written.
func printProgress(w io.Writer, ch <-chan orchestrator.ProgressEvent) (wait func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range ch {
			fmt.Fprintln(w, orchestrator.FormatProgress(ev))
		}
	}()
	return wg.Wait
}

// readSections loads a memo written by generate: JSON when the file ends
// in .json, Markdown otherwise.
func readSections(path string) ([]orchestrator.GeneratedSection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err := export.ReadJSON(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return doc.GeneratedSections(), nil
	}
	sections, err := export.ReadMarkdown(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return sections, nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
