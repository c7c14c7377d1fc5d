package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/behemotion/docbro/internal/catalog"
	"github.com/behemotion/docbro/internal/model"
)

var (
	boxShelf          string
	boxDescription    string
	boxSourceURL      string
	boxSourcePath     string
	boxMaxPages       int
	boxMaxDepth       int
	boxRateLimit      float64
	boxFollowExternal bool
	boxChunkSize      int
	boxChunkOverlap   int
	boxExtensions     string
	boxPatterns       string
	boxRecursive      bool
	boxPreserveStruct bool
	boxTypeFilter     string
)

var boxCmd = &cobra.Command{
	Use:   "box",
	Short: "Manage boxes",
}

func init() {
	create := &cobra.Command{
		Use:   "create <name> <type>",
		Short: "Create a new box (type is drag, rag, or bag)",
		Args:  cobra.ExactArgs(2),
		RunE:  runBoxCreate,
	}
	create.Flags().StringVar(&boxShelf, "shelf", "", "shelf to attach to (defaults to the current shelf)")
	create.Flags().StringVar(&boxDescription, "description", "", "box description")
	create.Flags().StringVar(&boxSourceURL, "url", "", "seed URL (drag boxes)")
	create.Flags().IntVar(&boxMaxPages, "max-pages", 100, "crawl page cap (drag boxes)")
	create.Flags().IntVar(&boxMaxDepth, "max-depth", 3, "crawl depth cap (drag boxes)")
	create.Flags().Float64Var(&boxRateLimit, "rate-limit", 1.0, "requests/sec per host (drag boxes)")
	create.Flags().BoolVar(&boxFollowExternal, "follow-external", false, "follow links off the seed domain (drag boxes)")
	create.Flags().StringVar(&boxSourcePath, "path", "", "local source directory (rag/bag boxes)")
	create.Flags().IntVar(&boxChunkSize, "chunk-size", 0, "chunk size in characters (rag boxes; 0 uses the default)")
	create.Flags().IntVar(&boxChunkOverlap, "chunk-overlap", 0, "chunk overlap in characters (rag boxes; 0 uses the default)")
	create.Flags().StringVar(&boxExtensions, "extensions", "", "comma-separated file extensions to include (rag boxes)")
	create.Flags().StringVar(&boxPatterns, "patterns", "", "comma-separated glob patterns to include (bag boxes)")
	create.Flags().BoolVar(&boxRecursive, "recursive", true, "descend into subdirectories (rag/bag boxes)")
	create.Flags().BoolVar(&boxPreserveStruct, "preserve-structure", true, "mirror source directory structure in page URLs (bag boxes)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List boxes",
		RunE:  runBoxList,
	}
	list.Flags().StringVar(&boxShelf, "shelf", "", "filter by shelf")
	list.Flags().StringVar(&boxTypeFilter, "type", "", "filter by box type")

	rename := &cobra.Command{
		Use:   "rename <old-name> <new-name>",
		Short: "Rename a box",
		Args:  cobra.ExactArgs(2),
		RunE:  runBoxRename,
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a box and its indexed content",
		Args:  cobra.ExactArgs(1),
		RunE:  runBoxDelete,
	}

	add := &cobra.Command{
		Use:   "add <shelf> <box>",
		Short: "Attach an existing box to a shelf",
		Args:  cobra.ExactArgs(2),
		RunE:  runBoxAdd,
	}

	remove := &cobra.Command{
		Use:   "remove <shelf> <box>",
		Short: "Detach a box from a shelf without deleting it",
		Args:  cobra.ExactArgs(2),
		RunE:  runBoxRemove,
	}

	boxCmd.AddCommand(create, list, rename, del, add, remove)
}

func runBoxCreate(cmd *cobra.Command, args []string) error {
	name, boxType := args[0], model.BoxType(args[1])
	cfg := model.BoxConfig{}
	switch boxType {
	case model.BoxTypeDrag:
		cfg.Drag = &model.DragConfig{
			InitialURL: boxSourceURL, MaxPages: boxMaxPages, MaxDepth: boxMaxDepth,
			RateLimit: boxRateLimit, FollowExternal: boxFollowExternal,
		}
	case model.BoxTypeRag:
		chunkSize := boxChunkSize
		if chunkSize <= 0 {
			chunkSize = application.Settings.DefaultChunkSize
		}
		chunkOverlap := boxChunkOverlap
		if boxChunkOverlap <= 0 {
			chunkOverlap = application.Settings.DefaultChunkOverlap
		}
		cfg.Rag = &model.RagConfig{
			InitialPath: boxSourcePath, ChunkSize: chunkSize, ChunkOverlap: chunkOverlap,
			Extensions: splitExtensions(boxExtensions), Recursive: boxRecursive,
		}
	case model.BoxTypeBag:
		cfg.Bag = &model.BagConfig{
			InitialPath: boxSourcePath, Patterns: splitList(boxPatterns),
			Recursive: boxRecursive, PreserveStructure: boxPreserveStruct,
		}
	}

	box, err := application.Catalog.CreateBox(cmd.Context(), name, boxType, catalog.BoxOptions{
		Shelf: boxShelf, Description: boxDescription, Config: cfg,
	})
	if err != nil {
		return err
	}
	cmd.Printf("created box %q (id=%s, type=%s)\n", box.Name, box.ID, box.Type)
	return nil
}

func splitExtensions(v string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, ext := range splitList(v) {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runBoxList(cmd *cobra.Command, args []string) error {
	boxes, err := application.Catalog.ListBoxes(cmd.Context(), boxShelf, model.BoxType(boxTypeFilter))
	if err != nil {
		return err
	}
	for _, b := range boxes {
		status := "empty"
		if b.ConfigurationState.HasContent {
			status = "filled"
		}
		cmd.Printf("%-24s %-6s %-8s %s\n", b.Name, b.Type, status, b.Description)
	}
	return nil
}

func runBoxRename(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.RenameBox(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("renamed box %q to %q\n", args[0], args[1])
	return nil
}

func runBoxDelete(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.DeleteBox(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("deleted box %q\n", args[0])
	return nil
}

func runBoxAdd(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.AddBoxToShelf(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("attached box %q to shelf %q\n", args[1], args[0])
	return nil
}

func runBoxRemove(cmd *cobra.Command, args []string) error {
	if err := application.Catalog.RemoveBoxFromShelf(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("detached box %q from shelf %q\n", args[1], args[0])
	return nil
}
