// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on domain and the ports, plus small utility
// libraries (uuid, x/sync).
package services
