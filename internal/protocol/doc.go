// Package protocol owns the daemon wire contract and parsing primitives.
//
// Ownership boundary:
// - line classification (terminator / value / failure)
// - ACK failure decoding and error codes
// - key/value decoding contract for typed responses
// - binary preamble parsing
//
// Wire shape:
//
//	Request:   <command> <arg1> <arg2> ...\n
//	Success:   OK\n  or  list_OK\n
//	Data:      <key>: <value>\n
//	Failure:   ACK [<code>@<index>] {<command>} <message>\n
//	Binary:    size: <n>\n [type: <mime>\n] binary: <len>\n <len raw bytes>\n OK\n
package protocol
