// Package media generates cached derivatives for images and videos.
//
// Generator renders resized JPEG variants of images into the hidden cache
// directory beside each asset. ThumbnailGenerator extracts a representative
// frame from videos. Both consult the cache first, join concurrent requests
// for the same cache file into a single generation, and publish through a
// temp file so readers never see partial output.
package media
