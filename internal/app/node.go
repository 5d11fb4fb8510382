package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/creator/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/creator/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/creator/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/creator/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/creator/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			fs.LocatorNodeID,
			fs.SnapshotterNodeID,
			fs.HasherNodeID,
			fs.CleanerNodeID,
			cas.NodeID,
			cas.WriterNodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
			scheduler.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	locator, err := graft.Dep[ports.UnitLocator](ctx)
	if err != nil {
		return nil, err
	}
	snapshotter, err := graft.Dep[ports.Snapshotter](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.Hasher](ctx)
	if err != nil {
		return nil, err
	}
	cleaner, err := graft.Dep[ports.Cleaner](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.StampStore](ctx)
	if err != nil {
		return nil, err
	}
	writer, err := graft.Dep[ports.FileWriter](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}
	sched, err := graft.Dep[*scheduler.Scheduler](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, locator, snapshotter, hasher, store, writer, cleaner, log, tracer, sched), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return NewComponents(app, log), nil
}
