// Package policy implements the adaptation bounded context: periodic
// retraining of trading parameters from execution history.
package policy

import (
	"context"
	"time"

	executionDI "github.com/fd1az/flasharb/business/execution/di"
	"github.com/fd1az/flasharb/business/policy/app"
	policyDI "github.com/fd1az/flasharb/business/policy/di"
	"github.com/fd1az/flasharb/business/policy/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/di"
	"github.com/fd1az/flasharb/internal/logger"
	"github.com/fd1az/flasharb/internal/monolith"
)

// Module implements the policy bounded context.
type Module struct{}

// RegisterServices registers all policy services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Service (public - the simulator reads it on every plan)
	di.RegisterToken(c, policyDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		baseline := domain.Baseline(
			cfg.Simulation.SlippageCeilingBps,
			cfg.Detection.MinProfitThresholdDecimal(),
		)
		service, err := app.NewService(cfg.Policy, baseline, executionDI.GetAttemptStore(sr), log)
		if err != nil {
			panic("failed to create policy service: " + err.Error())
		}
		return service
	})

	return nil
}

// Startup launches the training loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	service := policyDI.GetService(mono.Services())

	interval := cfg.Policy.TrainInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := service.Train(ctx); err != nil {
					// Not enough history is the normal cold-start case.
					if apperror.GetCode(err) == apperror.CodeInsufficientData {
						log.Debug(ctx, "policy training skipped", "error", err)
						continue
					}
					log.Warn(ctx, "policy training failed", "error", err)
				}
			}
		}
	}()

	log.Info(ctx, "policy module started",
		"train_interval", interval.String(),
		"min_attempts", cfg.Policy.MinAttempts,
		"history_window", cfg.Policy.HistoryWindow,
	)
	return nil
}
