// Package ttlcache provides the in-process lookup cache service used for
// media probe and sniff results.
//
// A Cache is constructed once per process with an injected clock and TTL and
// passed to the collaborators that need it. Entries expire lazily on Get and
// in bulk on Sweep.
package ttlcache
