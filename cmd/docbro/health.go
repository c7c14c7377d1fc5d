package main

import (
	"github.com/spf13/cobra"

	"github.com/behemotion/docbro/internal/errs"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report embedder, vector store, and metastore reachability",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	embedHealth := application.Embedder.Health(ctx)
	vecHealth := application.Vectors.Health(ctx)
	_, metaErr := application.Meta.GetBoxByName(ctx, "__docbro_health_probe__")
	metaOK := metaErr == nil || notFoundOK(metaErr)

	cmd.Printf("embedder:     reachable=%v model=%s dim=%d\n", embedHealth.Reachable, embedHealth.Model, embedHealth.Dimension)
	cmd.Printf("vectorstore:  reachable=%v backend=%s dim=%d %s\n", vecHealth.Reachable, vecHealth.Backend, vecHealth.Dimension, vecHealth.Detail)
	cmd.Printf("metastore:    reachable=%v\n", metaOK)

	if !embedHealth.Reachable || !vecHealth.Reachable || !metaOK {
		return fatalf("docbro: one or more backends unreachable")
	}
	return nil
}

// notFoundOK treats a not-found lookup as proof the store itself answered,
// which is all the health probe needs.
func notFoundOK(err error) bool {
	kind, ok := errs.As(err)
	return ok && kind == errs.NotFound
}
