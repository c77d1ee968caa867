// Package wire implements the transfer channel shared by every node pair
// (client<->hub, hub<->storage node). A channel carries two kinds of traffic:
//
//   - frames: an 8-byte signed little-endian length header followed by exactly
//     that many payload bytes, written and read in BlockSize chunks;
//   - text messages: commands and replies terminated by a single NUL byte.
//
// Both kinds share one buffered reader, so a reply immediately followed by a
// frame (READY, TAR_READY, the downlf filename stream) never needs a pause
// between them. A peer that cannot produce a frame it was asked for sends an
// ERROR message in its place; RecvFrame surfaces that as *RemoteError.
package wire
