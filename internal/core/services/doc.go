// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. Their only non-domain imports are
// the logger and the fingerprint hash.
package services
