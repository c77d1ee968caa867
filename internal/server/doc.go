// Package server hosts the network plumbing shared by every node: the TCP
// accept loop that hands each connection to a session handler, the endpoint
// registry that maps file categories to the node owning them, and the optional
// Fiber diagnostics app the hub exposes under /-/. Session semantics live in
// the hub and backend packages; this package only accepts, tracks and closes
// connections, so keep exports narrow and accept explicit dependencies.
package server
