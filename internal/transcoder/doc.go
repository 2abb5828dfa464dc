// Package transcoder decides whether a video needs an H.264 copy and
// produces it at most once.
//
// State lives in control records beside the cache output so it survives
// restarts:
//
//	<base>.h264.lock  {"at":...,"pid":...}           transcode in flight
//	<base>.h264.fail  {"at":...,"message":...}       last attempt failed
//	<base>.h264.skip  {"at":...,"reason":...}        policy says no copy needed
//
// EnsureTranscode never blocks on another caller's work: a held lock or a
// recent failure simply means "not available yet".
package transcoder
