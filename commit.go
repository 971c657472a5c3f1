// Commit hash: identity of a record's body for copy-on-write revision
// chains (spec §4.D.6 "every revision gets a new commit hash over its
// body bytes").
//
// Grounded on jpl-au-folio/hash.go, which xxh3-hashes a document's
// encoded bytes to detect duplicate content; CommitHash reuses the
// same algorithm over the record's outer-container bytes instead of a
// JSON line.
package carbon

import "github.com/zeebo/xxh3"

// CommitHash returns the content hash of body, the bytes of a record's
// outer container starting at its begin marker. Two records with
// identical bodies get the same commit hash.
func CommitHash(body []byte) uint64 {
	return xxh3.Hash(body)
}
