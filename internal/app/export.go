package app

import (
	"context"
	"time"

	"go.trai.ch/creator/internal/core/domain"
	"go.trai.ch/creator/internal/core/ports"
	"go.trai.ch/creator/internal/engine/ninja"
)

// export renders the plan and replaces the build file when it is stale.
// The build file is stale when the rendered bytes differ from the recorded stamp
// or from the file on disk.
func (a *App) export(ctx context.Context, ws *workspace) error {
	_, span := a.tracer.Start(ctx, "export", ports.WithAttribute("creator.build_file", ws.plan.BuildFile))
	defer span.End()

	if err := a.writeIfStale(ws); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (a *App) writeIfStale(ws *workspace) error {
	data, err := ninja.New().Render(ws.plan)
	if err != nil {
		return err
	}
	hash := a.hasher.HashBytes(data)
	path := ws.buildFilePath()

	stamp, err := a.store.Get(ws.config.Root, ws.plan.BuildFile)
	if err != nil {
		return err
	}
	current, err := a.hasher.HashFile(path)
	if err != nil {
		return err
	}
	if stamp != nil && stamp.Hash == hash && current == hash {
		a.logger.Info(ws.plan.BuildFile + " is up to date")
		return nil
	}

	if err := a.writer.WriteFile(path, data); err != nil {
		return err
	}

	units := make([]string, 0, len(ws.plan.Graph.Units()))
	for _, u := range ws.plan.Graph.Units() {
		units = append(units, u.Identity)
	}
	if err := a.store.Put(ws.config.Root, domain.ExportStamp{
		BuildFile: ws.plan.BuildFile,
		Hash:      hash,
		Units:     units,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return err
	}

	a.logger.Info("wrote " + ws.plan.BuildFile)
	return nil
}
