package vectorstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/behemotion/docbro/internal/config"
)

// Open constructs the VectorStore backend named by settings.VectorBackend
// (spec §4.B), mirroring the teacher's factory.go dispatch pattern.
func Open(settings *config.EffectiveSettings, log *zap.Logger) (VectorStore, error) {
	switch settings.VectorBackend {
	case config.VectorBackendEmbedded, "":
		return NewEmbedded(settings.Paths.VectorsDir, log)
	case config.VectorBackendRemote:
		return NewRemote(settings.RemoteVectorURL, log)
	default:
		return nil, fmt.Errorf("vectorstore: unknown backend %q", settings.VectorBackend)
	}
}
