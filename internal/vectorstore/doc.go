// Package vectorstore provides the VectorStore port and its two drivers:
// Embedded (chromem-go, file-backed) and Remote (Qdrant, gRPC). A collection
// maps one-to-one to a box; there is no cross-box or cross-tenant isolation
// to enforce, since every collection already belongs to exactly one box.
//
// # Usage
//
//	store, err := vectorstore.Open(settings, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.EnsureCollection(ctx, box.ID, dim); err != nil {
//	    return err
//	}
//	err = store.Upsert(ctx, box.ID, points)
//	hits, err := store.Search(ctx, box.ID, queryVec, 10)
package vectorstore
