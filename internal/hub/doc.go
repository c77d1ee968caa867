// Package hub implements the client-facing node. A Dispatcher accepts client
// sessions, stages uploaded and retrieved files in a per-session directory,
// and routes every file to the Target owning its category: the hub root for
// locally kept files, or a storage node reached over a fresh connection per
// operation. Replies to the client are literal text lines; callers should
// treat them as part of the protocol and never reword them.
package hub
