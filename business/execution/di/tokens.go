// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("execution.Orchestrator")
	Catalog      = di.NewToken[app.ProviderCatalog]("execution.Catalog")
	AttemptStore = di.NewToken[app.AttemptStore]("execution.AttemptStore")
)

// Private dependency tokens - internal to execution module
var (
	Submitter = di.NewToken[app.Submitter]("execution:submitter")
	Events    = di.NewToken[app.EventPublisher]("execution:events")
	Selector  = di.NewToken[*app.Selector]("execution:selector")
)

// Helper functions for type-safe access
func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetCatalog(c di.ServiceRegistry) app.ProviderCatalog {
	return di.GetToken(c, Catalog)
}

func GetAttemptStore(c di.ServiceRegistry) app.AttemptStore {
	return di.GetToken(c, AttemptStore)
}

func GetSubmitter(c di.ServiceRegistry) app.Submitter {
	return di.GetToken(c, Submitter)
}

func GetEvents(c di.ServiceRegistry) app.EventPublisher {
	return di.GetToken(c, Events)
}

func GetSelector(c di.ServiceRegistry) *app.Selector {
	return di.GetToken(c, Selector)
}
