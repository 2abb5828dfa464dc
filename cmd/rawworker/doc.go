// Command rawworker decodes one camera RAW file in its own process.
//
// The server runs it as
//
//	rawworker <input> <output>
//
// and reads back the interleaved pixel payload from <output> and its layout
// (width, height, channels, bit depth, byte order, orientation) from
// <output>.json. A crash or hang in the RAW decoder takes down only this
// process; the parent enforces a timeout and treats any non-zero exit as a
// decode failure.
//
// Exit codes:
//
//	0  payload and metadata written
//	1  input missing or decode failed
//	2  wrong arguments
package main
