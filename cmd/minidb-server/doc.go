// Command minidb-server runs the minidb key-value server.
//
//	minidb-server [--config FILE] [--log-level L] [--log-format F] [PORT [PATH]]
//
// PORT binds all interfaces and PATH names the image file. The process
// prints "ready" on stdout once it accepts clients, logs to stderr, and
// saves the store on SIGINT or SIGTERM.
package main
