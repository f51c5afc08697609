// Package di provides a minimal dependency injection container with
// type-safe tokens. Services are registered either as instances or as
// lazy factories resolved (and memoized) on first access.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry provides read access to registered services.
type ServiceRegistry interface {
	// Get returns the service registered under name, resolving a factory
	// if necessary. Panics if the name is unknown.
	Get(name string) any
}

// Container extends ServiceRegistry with registration.
type Container interface {
	ServiceRegistry

	// Register registers a ready-made service instance.
	Register(name string, svc any)

	// RegisterFactory registers a lazy factory. The factory runs once,
	// on first Get, and its result is memoized.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

// Token is a typed handle for a service registered in a Container.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registration name.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory under the token's name.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a token to its typed service.
// Panics if the token is unregistered or the type does not match.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc := sr.Get(token.name)
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T, token expects different type", token.name, svc))
	}
	return typed
}

// container is the default Container implementation.
type container struct {
	mu        sync.Mutex
	instances map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		instances: make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[name] = svc
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	if svc, ok := c.instances[name]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.factories[name]
	c.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	// Resolve outside the lock so factories can Get their own dependencies.
	svc := factory(c)

	c.mu.Lock()
	c.instances[name] = svc
	c.mu.Unlock()

	return svc
}
