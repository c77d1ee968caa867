// Package backend implements the storage node side of the cluster. A node owns
// exactly one file category and one physical root; the hub drives it with a
// small line-oriented command set (STORE, RETRIEVE, DELETE, LIST, CREATETAR,
// TEST) over the framed channel from internal/wire. Each connection is served
// by its own goroutine and commands on a connection run strictly in order.
package backend
