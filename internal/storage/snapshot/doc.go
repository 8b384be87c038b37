// Package snapshot persists the store to a single image file.
//
// Three on-disk formats are supported:
//
//   - binary: magic, length-prefixed JSON header, length-prefixed record
//     block (optionally encrypted), SHA-256 trailer
//   - text: one "key value" line per record
//   - bolt: a boltdb file with a single records bucket
//
// Every save builds the new image at a temporary path in the target
// directory, syncs it, and renames it over the target, so a partially
// written image is never visible to Load. Load detects the format from the
// file content, so an image written in any format can be read back whatever
// the configured save format is.
package snapshot
