// Package session owns one request/response exchange with the daemon.
//
// Ownership boundary:
// - the Socket capability and its net.Conn implementation
// - command transactions and their four read strategies
// - binary slice assembly
// - reconnect/backoff primitives
//
// A Transaction is single use. Reading its response consumes it, and a
// connection that closes mid-response is re-dialed and the command replayed,
// up to Config.MaxReconnects times.
package session
