package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/creator/internal/core/ports"
)

const (
	// NodeID is the unique identifier for the stamp store Graft node.
	NodeID graft.ID = "adapter.stamp_store"
	// WriterNodeID is the unique identifier for the atomic file writer Graft node.
	WriterNodeID graft.ID = "adapter.atomic_writer"
)

func init() {
	graft.Register(graft.Node[ports.StampStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.StampStore, error) {
			return NewStore(), nil
		},
	})

	graft.Register(graft.Node[ports.FileWriter]{
		ID:        WriterNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.FileWriter, error) {
			return NewAtomicWriter(), nil
		},
	})
}
