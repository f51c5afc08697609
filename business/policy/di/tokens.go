// Package di contains dependency injection tokens for the policy context.
package di

import (
	"github.com/fd1az/flasharb/business/policy/app"
	"github.com/fd1az/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("policy.Service")
)

// Helper functions for type-safe access
func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}
