// Package notifyhub relays events from HTTP requests to websocket clients
// that registered a code.
//
//     notifyhub -addr=:8080
//
// Everything is as ephemeral as can be. A client opens a websocket on any
// path and is sent
//     {"event": "WELCOME", "data": {"message": "Please register your code"}}
// It answers with
//     {"event": "REGISTER", "data": {"code": "abc123"}}
//
// Trigger an event on that client with a GET request.
//     curl 'localhost:8080/notify?code=abc123&event=ping&msg=hi'
//
// The client receives the event name uppercased with spaces turned into
// underscores, and every query parameter as data:
//     {"event": "PING", "data": {"code": "abc123", "event": "ping", "msg": "hi"}}
//
// Unknown codes get a 404, requests missing code or event a 400. A code is
// forgotten when its websocket disconnects. When several live clients share
// a code, the one that registered it first receives the event.
//
// Non-websocket GET / serves an HTML client that registers the code in its
// query string.
//     http://localhost:8080/?code=abc123
package main
