// Package service coordinates discovery runs, graph building and layout for
// the HTTP handlers and the one-shot CLI.
//
// TopologyService owns the current graph and layout engine. Neither is safe
// for concurrent use, so the service serializes access with a mutex. A
// discovery run executes on its own goroutine and at most one runs at a time;
// cancellation sets the run's CancelToken and the partial result is applied
// like a full one. Full layout computation happens on a private engine that
// is swapped in when finished, so readers never wait for it.
//
// # Event System
//
// The service publishes events via EventBus for real-time updates to
// connected clients via Server-Sent Events (SSE): discovery lifecycle and
// progress, graph replacement, finished layouts and dragged positions.
package service
