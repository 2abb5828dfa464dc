/*
Package source decides what must happen before an asset can be rendered.

Resolve maps an original file to one of:

  - KindOriginal: decode the file as-is.
  - KindSibling: a RAW file with a camera JPEG beside it; the JPEG is used.
  - KindRawDecoded: a RAW file decoded by the worker subprocess; the pixel
    buffer travels with the Source.
  - KindFallback: the RAW worker failed; the original is handed to the
    generic codec with a warning.
  - KindHEIC: a HEIF container, decoded in memory by the variant generator.

Extensions are advisory. Files named .jpg or .heic are sniffed and routed by
their content, so a JPEG saved as .heic skips the HEIF decoder.

WorkerClient runs the RAW decode worker through a weighted semaphore so
that concurrent requests cannot fan out into unbounded subprocesses.
*/
package source
