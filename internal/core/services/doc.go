// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingestion turns uploaded documents into indexed records; querying turns a
// question into a grounded answer. Both hold only immutable configuration
// and injected, concurrency-safe clients.
package services
