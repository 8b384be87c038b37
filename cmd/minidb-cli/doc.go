// Command minidb-cli talks to a minidb server.
//
//	minidb-cli [--addr HOST:PORT] post KEY VALUE | get KEY | delete KEY | raw WORD... | check | repl | stats
package main
