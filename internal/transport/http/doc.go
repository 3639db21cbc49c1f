// Package http implements the HTTP request handlers for the DATRAS
// download service. It provides a thin layer between HTTP transport and
// the service layer, keeping handlers focused solely on HTTP concerns.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → SOAP client
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details:
//
//	{
//	    "type": "/errors/datasets/download-limit",
//	    "title": "Download limit exceeded",
//	    "status": 422,
//	    "detail": "6 combinations requested, limit is 5",
//	    "instance": "/api/datasets/hh"
//	}
//
// # WebSocket Support
//
// The websocket handler upgrades the connection with Gorilla WebSocket,
// registers the client with the hub and streams fetch progress events.
//
// # Testing
//
// Handlers are tested using httptest with mock service dependencies.
package http
