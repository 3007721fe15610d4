// Package handler implements the HTTP API over the topology service.
//
// # Endpoints
//
//	GET  /api/graph              nodes, edges and layout positions
//	GET  /api/stats              category counts for the current graph
//	GET  /api/result             raw result of the last discovery run
//	GET  /api/discover           status of the running or last run
//	POST /api/discover           start a run, optional {"subnet": "..."}
//	POST /api/discover/cancel    request cancellation of the running run
//	POST /api/layout             recompute from {"strategy": "..."}
//	POST /api/layout/step        advance the layout by one iteration
//	PUT  /api/positions/{ip}     drag a node, optional "pinned"
//	GET  /events                 Server-Sent Events stream
//	GET  /metrics                Prometheus exposition
//
// Errors are returned as JSON with an {error, details} structure.
package handler
