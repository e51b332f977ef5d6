// Package server exposes the controller over HTTP and WebSocket.
//
// # Routes
//
//	GET  /     full state of every domain as JSON
//	POST /     one RPC request {id?, method, params}; the body of the
//	           response is the RPC envelope {id?, result} or {id?, error}
//	GET  /ws   WebSocket; see below
//
// A POST without a string method is answered with 400
// {"error":"invalid_method"}. Unknown paths get 404 {"error":"not_found"}.
//
// # WebSocket
//
// On connect the server pushes {"event":"full_state","data":{...}}. From then
// on every event the controller emits is forwarded as {"event", "data"}, and
// text frames carrying RPC requests are answered on the same socket. Each
// connection has a single writer goroutine; pings keep idle connections
// alive.
//
// The server holds no controller state. Every request is executed on the
// controller's run loop through the Backend interface.
package server
