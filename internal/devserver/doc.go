// Package devserver exposes a scenario's router over HTTP for interactive
// exploration.
//
// Every WebSocket connection gets its own navigation and router run.
// Clients send navigation frames and receive the content the router
// emits:
//
//	→ {"type":"navigate","path":"/users/7"}
//	← {"type":"content","path":"/users/7","content":"shell[user 7]"}
//	→ {"type":"back"}
//
// When the run fails the server sends an error frame carrying the error
// code and closes the connection.
//
// Endpoints:
//
//	GET /ws       WebSocket bridge
//	GET /routes   compiled route table as JSON
//	GET /healthz  liveness
//	GET /metrics  Prometheus metrics (path configurable)
package devserver
