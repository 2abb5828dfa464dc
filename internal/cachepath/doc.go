// Package cachepath maps an asset and a variant to its cache file.
//
// Derived files live in a hidden subdirectory of the asset's own folder:
//
//	Trip/img.dng          -> Trip/.thumbs/img_w300.jpg, Trip/.thumbs/img_full.jpg
//	Trip/clip.mov         -> Trip/.thumbs/clip.jpg (thumbnail)
//	                         Trip/.thumbs/clip.h264.mp4 (transcode)
//	                         Trip/.thumbs/clip.h264.lock|.fail|.skip (control records)
//
// Mapping is a pure function of its inputs. Directory listings performed by
// collaborators must skip entries for which IsHidden returns true.
package cachepath
