package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/chunking"
	"github.com/behemotion/docbro/internal/crawler"
	"github.com/behemotion/docbro/internal/errs"
	"github.com/behemotion/docbro/internal/indexer"
	"github.com/behemotion/docbro/internal/model"
)

var fillChunkStrategy string

var fillCmd = &cobra.Command{
	Use:   "fill <box> [source]",
	Short: "Crawl or ingest a box's source into its index",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runFill,
}

func init() {
	fillCmd.Flags().StringVar(&fillChunkStrategy, "chunk-strategy", string(chunking.StrategyCharacter), "chunking strategy: character or semantic")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	box, err := application.Meta.GetBoxByName(ctx, args[0])
	if err != nil {
		return err
	}

	strategy := chunking.Strategy(fillChunkStrategy)

	switch box.Type {
	case model.BoxTypeDrag:
		return fillDrag(ctx, cmd, box, args, strategy)
	case model.BoxTypeRag, model.BoxTypeBag:
		return fillLocal(ctx, cmd, box, args, strategy)
	default:
		return errs.New(errs.InvalidInput, "box has no known type: "+string(box.Type))
	}
}

func fillDrag(ctx context.Context, cmd *cobra.Command, box model.Box, args []string, strategy chunking.Strategy) error {
	source := ""
	if len(args) > 1 {
		source = args[1]
	} else if box.Config.Drag != nil {
		source = box.Config.Drag.InitialURL
	}
	if source == "" {
		return errs.New(errs.InvalidInput, "drag box has no seed URL; pass one or set it at box create time")
	}

	maxPages, maxDepth, rateLimit, followExternal := 100, 3, 1.0, false
	if box.Config.Drag != nil {
		maxPages, maxDepth = box.Config.Drag.MaxPages, box.Config.Drag.MaxDepth
		rateLimit, followExternal = box.Config.Drag.RateLimit, box.Config.Drag.FollowExternal
	}

	indexed := 0
	session := crawler.NewSession(box.ID, source, maxDepth, maxPages, rateLimit, followExternal, application.Meta, application.Log, func(pf crawler.PageFetched) {
		n, err := application.Indexer.IndexPage(ctx, box, indexer.Document{Page: pf.Page, Body: pf.Body}, strategy)
		if err != nil {
			application.Log.Warn("index page failed", zap.Error(err))
			return
		}
		indexed += n
	})

	record, err := session.Run(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("crawl %s: fetched=%d failed=%d chunks_indexed=%d status=%s\n",
		record.ID, record.Counters.PagesFetched, record.Counters.PagesFailed, indexed, record.Status)
	return nil
}

func fillLocal(ctx context.Context, cmd *cobra.Command, box model.Box, args []string, strategy chunking.Strategy) error {
	source := ""
	recursive := true
	switch {
	case box.Config.Rag != nil:
		source, recursive = box.Config.Rag.InitialPath, box.Config.Rag.Recursive
	case box.Config.Bag != nil:
		source, recursive = box.Config.Bag.InitialPath, box.Config.Bag.Recursive
	}
	if len(args) > 1 {
		source = args[1]
	}
	if source == "" {
		return errs.New(errs.InvalidInput, "box has no source path; pass one or set it at box create time")
	}

	files, err := walkSource(source, recursive, box)
	if err != nil {
		return err
	}

	indexed, pages := 0, 0
	for _, path := range files {
		body, err := os.ReadFile(path)
		if err != nil {
			application.Log.Warn("read file failed", zap.Error(err))
			continue
		}
		pageURL := path
		if box.Config.Bag != nil && !box.Config.Bag.PreserveStructure {
			pageURL = filepath.Base(path)
		}
		page := model.Page{
			BoxID: box.ID, URL: pageURL, FetchedAt: time.Now(), StatusCode: 200,
			Title: filepath.Base(path), ContentHash: contentHashOf(body),
		}
		n, err := application.Indexer.IndexPage(ctx, box, indexer.Document{Page: page, Body: string(body)}, strategy)
		if err != nil {
			return fmt.Errorf("docbro: index %s: %w", path, err)
		}
		indexed += n
		pages++
	}
	cmd.Printf("ingested %d file(s), %d chunk(s) indexed\n", pages, indexed)
	return nil
}

// walkSource lists files under source matching the box's rag Extensions or
// bag Patterns filter.
func walkSource(source string, recursive bool, box model.Box) ([]string, error) {
	var matches []string
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != source {
				return filepath.SkipDir
			}
			return nil
		}
		if sourceMatches(path, box) {
			matches = append(matches, path)
		}
		return nil
	}
	if err := filepath.WalkDir(source, walkFn); err != nil {
		return nil, fmt.Errorf("docbro: walk %s: %w", source, err)
	}
	return matches, nil
}

func sourceMatches(path string, box model.Box) bool {
	switch {
	case box.Config.Rag != nil:
		if len(box.Config.Rag.Extensions) == 0 {
			return true
		}
		_, ok := box.Config.Rag.Extensions[strings.ToLower(filepath.Ext(path))]
		return ok
	case box.Config.Bag != nil:
		if len(box.Config.Bag.Patterns) == 0 {
			return true
		}
		base := filepath.Base(path)
		for _, pattern := range box.Config.Bag.Patterns {
			if ok, _ := filepath.Match(pattern, base); ok {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func contentHashOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
