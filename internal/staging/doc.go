// Package staging holds files that are in flight on the hub: uploads received
// from a client before they are distributed, files fetched from a storage node
// before they are streamed back, and locally built archive artifacts. Entries
// live under <StagingDir>/<session>/<name>, are written through a temp file +
// rename, and are tracked by a Ledger so every command removes what it staged
// regardless of how it ended.
package staging
