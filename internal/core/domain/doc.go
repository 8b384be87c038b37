// Package domain defines the core domain model for minidb.
//
// The types here carry no IO and no framework coupling:
//
//   - Record: a single key/value pair held by the store
//   - Status: the leading digit of every wire response
//   - Errors: structured error codes and their mapping to Status
package domain
