// Package lineserver serves the minidb line protocol over TCP.
//
// Each request is one newline-terminated line of whitespace-separated
// tokens:
//
//	POST <key> <value>    -> 0
//	GET <key>             -> 0 <value> | 1
//	DELETE <key>          -> 0 | 1
//	anything else         -> 2
//
// Every connection is served by its own goroutine and may carry any number
// of requests. Shutdown stops accepting, lets in-flight commands finish
// within the caller's deadline and never starts a command that was not
// already being applied.
package lineserver
