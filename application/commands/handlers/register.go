package handlers

import (
	"context"

	"treeservice/application/commands"
	"treeservice/application/commands/bus"
)

// Register wires every command handler into the bus
func Register(b *bus.CommandBus, projects *ProjectHandler, trees *TreeHandler, configs *ConfigHandler) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandlerFunc
	}{
		{commands.CreateProjectCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return projects.HandleCreate(ctx, c.(commands.CreateProjectCommand))
		}},
		{commands.UpdateProjectCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return projects.HandleUpdate(ctx, c.(commands.UpdateProjectCommand))
		}},
		{commands.SelectModelCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return projects.HandleSelectModel(ctx, c.(commands.SelectModelCommand))
		}},
		{commands.CreateTreeCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return trees.HandleCreate(ctx, c.(commands.CreateTreeCommand))
		}},
		{commands.WriteTreeCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return trees.HandleWrite(ctx, c.(commands.WriteTreeCommand))
		}},
		{commands.UndoTreeCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return trees.HandleUndo(ctx, c.(commands.UndoTreeCommand))
		}},
		{commands.CreateConfigCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return configs.HandleCreate(ctx, c.(commands.CreateConfigCommand))
		}},
		{commands.UpdateConfigCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return configs.HandleUpdate(ctx, c.(commands.UpdateConfigCommand))
		}},
		{commands.SelectConfigCommand{}, func(ctx context.Context, c bus.Command) (interface{}, error) {
			return configs.HandleSelect(ctx, c.(commands.SelectConfigCommand))
		}},
	}

	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
