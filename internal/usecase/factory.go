package usecase

import (
	"log/slog"

	"fincrew/internal/domain"
	"fincrew/internal/infra/config"
)

// ToolSource resolves category subscriptions into concrete tools.
type ToolSource interface {
	ForCategories(categories []string) []domain.Tool
}

// BuildWorkers constructs the worker team from configuration. Each worker
// gets the union of tools tagged with its subscribed categories.
func BuildWorkers(cfgs []config.WorkerConfig, tools ToolSource, logger *slog.Logger) []TeamMember {
	workers := make([]TeamMember, 0, len(cfgs))
	for _, c := range cfgs {
		workers = append(workers, NewWorker(WorkerDeps{
			Name:         c.Name,
			Description:  c.Description,
			SystemPrompt: c.SystemPrompt,
			Tools:        tools.ForCategories(c.Subscriptions),
			MaxTurns:     c.MaxTurns,
			Logger:       logger,
		}))
	}
	return workers
}

// BuildManager constructs the manager agent over the worker team.
func BuildManager(cfg config.ManagerConfig, workers []TeamMember, memory domain.Memory, logger *slog.Logger) *Manager {
	return NewManager(ManagerDeps{
		Name:         cfg.Name,
		SystemPrompt: cfg.SystemPrompt,
		Workers:      workers,
		Memory:       memory,
		MaxTurns:     cfg.MaxTurns,
		Logger:       logger,
	})
}
