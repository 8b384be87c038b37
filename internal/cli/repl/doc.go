// Package repl runs an interactive minidb session: each input line is sent
// to the server as a raw command and the reply is printed.
//
// Built-ins: "history" lists previous commands, "exit" and "quit" leave.
package repl
