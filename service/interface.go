// Package service defines the lifecycle contract for long-lived subsystems
// and the hub that initializes, starts and stops them in dependency order
package service

// Service defines the lifecycle interface for infrastructure subsystems
// Services own long-lived resources: the audio device, the mixer, metrics
//
// Lifecycle:
//  1. Construction (via factory)
//  2. Init(args...) - configuration handed down by the hub
//  3. Start() - load assets, launch background work
//  4. [runtime operation]
//  5. Stop() - halt background work, release resources
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies returns names of services that must Init before this one
	Dependencies() []string

	// Init configures the service from optional args
	Init(args ...any) error

	// Start begins service operation
	Start() error

	// Stop halts service operation and releases resources
	// Must be idempotent
	Stop() error
}
