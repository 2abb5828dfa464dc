// Package streaming guards long HTTP responses against stalled clients.
//
// Videos are served through http.ServeContent on a server with no overall
// WriteTimeout, since a full-length movie may legitimately take minutes to
// transfer. Wrapping the response writer in a Writer gives every chunk its
// own write deadline instead:
//
//	sw := streaming.NewWriter(w, streaming.DefaultConfig())
//	http.ServeContent(sw, r, name, modTime, f)
//	bytes, took, timedOut := sw.Stats()
//
// A client that keeps reading, however slowly, is never cut off. A client
// that stops reading for longer than WriteTimeout fails the next write with
// ErrWriteTimeout and the connection is closed.
package streaming
