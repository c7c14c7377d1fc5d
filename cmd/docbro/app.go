package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/config"
	"github.com/behemotion/docbro/internal/contextengine"
	"github.com/behemotion/docbro/internal/embedder"
	"github.com/behemotion/docbro/internal/indexer"
	"github.com/behemotion/docbro/internal/logging"
	"github.com/behemotion/docbro/internal/metastore"
	"github.com/behemotion/docbro/internal/retrieval"
	"github.com/behemotion/docbro/internal/vectorstore"
	"github.com/behemotion/docbro/internal/wizard"
)

// application is the process-wide app built once by rootCmd's
// PersistentPreRunE and shared by every subcommand.
var application *app

// app wires every port and service together for one CLI invocation,
// mirroring the teacher's dependencies/services split in cmd/contextd but
// collapsed into a single struct since docbro has no long-lived daemon
// dependencies (NATS, JetStream) to separate out.
type app struct {
	Settings *config.EffectiveSettings
	Log      *zap.Logger

	Meta     *metastore.Store
	Vectors  vectorstore.VectorStore
	Embedder embedder.Embedder

	Catalog  *catalog.Catalog
	Context  *contextengine.Engine
	Wizard   *wizard.Orchestrator
	Indexer  *indexer.Indexer
	Retrieve *retrieval.Engine
	Synonyms retrieval.SynonymMap
}

func newApp() (*app, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := settings.Paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("docbro: prepare data directories: %w", err)
	}

	log, err := logging.New(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("docbro: build logger: %w", err)
	}

	meta, err := metastore.Open(settings.Paths.MetaStoreFile, logging.Component(log, "metastore"))
	if err != nil {
		return nil, err
	}

	vectors, err := openVectorStore(settings, logging.Component(log, "vectorstore"))
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	embed, err := embedder.New(settings.EmbedderModel, settings.Paths.CacheDir, logging.Component(log, "embedder"))
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	cat := catalog.New(meta, vectors)
	ctxEngine := contextengine.New(meta)
	cat.OnChange(ctxEngine.Invalidate)

	synonyms, err := retrieval.LoadSynonyms(settings.Paths.QueryTransformsFile)
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("docbro: load query transformations: %w", err)
	}

	a := &app{
		Settings: settings,
		Log:      log,
		Meta:     meta,
		Vectors:  vectors,
		Embedder: embed,
		Catalog:  cat,
		Context:  ctxEngine,
		Wizard:   wizard.New(meta, cat),
		Indexer: &indexer.Indexer{
			Vectors:             vectors,
			Embedder:            embed,
			Meta:                meta,
			Log:                 logging.Component(log, "indexer"),
			DefaultChunkSize:    settings.DefaultChunkSize,
			DefaultChunkOverlap: settings.DefaultChunkOverlap,
		},
		Retrieve: &retrieval.Engine{
			Vectors:  vectors,
			Embedder: embed,
			Meta:     meta,
		},
		Synonyms: synonyms,
	}
	return a, nil
}

func openVectorStore(settings *config.EffectiveSettings, log *zap.Logger) (vectorstore.VectorStore, error) {
	switch settings.VectorBackend {
	case config.VectorBackendRemote:
		return vectorstore.NewRemote(settings.RemoteVectorURL, log)
	default:
		return vectorstore.NewEmbedded(settings.Paths.VectorsDir, log)
	}
}

func (a *app) Close() error {
	if a.Vectors != nil {
		if err := a.Vectors.Close(); err != nil {
			a.Log.Warn("close vector store", zap.Error(err))
		}
	}
	if closer, ok := a.Embedder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Log.Warn("close embedder", zap.Error(err))
		}
	}
	if a.Meta != nil {
		return a.Meta.Close()
	}
	return nil
}
