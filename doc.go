// Command media-variants serves display-ready derivatives of a media
// library: resized JPEG variants of photos (including camera RAW and HEIF),
// poster frames of videos, and H.264 transcodes of videos that browsers
// cannot play.
//
// # Lifecycle
//
//  1. Memory: GOMEMLIMIT is derived from MEMORY_LIMIT unless set directly.
//  2. Configuration: environment variables are read and the media dir checked.
//  3. Collaborators: libvips is started, the RAW worker binary located, and
//     ffmpeg/ffprobe checked on PATH. Missing tools degrade the affected
//     derivatives; the server still starts.
//  4. Core: lookup caches, the memory monitor, the source watcher, the image
//     and thumbnail generators and the transcode coordinator are built and
//     handed to the HTTP handlers.
//  5. Shutdown: on SIGINT/SIGTERM the HTTP server drains, in-flight
//     transcodes are cancelled (leaving no lock or fail record behind), and
//     the watcher, monitor and libvips are stopped.
//
// # Cache layout
//
// Derivatives live beside their sources in a hidden .thumbs directory:
//
//	Trip/IMG_0001.NEF
//	Trip/.thumbs/IMG_0001_w300.jpg
//	Trip/.thumbs/IMG_0001_full.jpg
//	Trip/clip.mov
//	Trip/.thumbs/clip.jpg
//	Trip/.thumbs/clip.h264.mp4
//	Trip/.thumbs/clip.h264.skip
//
// There is no database; the files are the state.
//
// # Related packages
//
//   - [media-variants/internal/media]: image variants and video thumbnails
//   - [media-variants/internal/transcoder]: background H.264 transcodes
//   - [media-variants/internal/source]: RAW, HEIC and sibling resolution
//   - [media-variants/internal/handlers]: HTTP routes
//   - [media-variants/internal/startup]: configuration
package main
