// Package mediatypes classifies assets by extension and by content.
//
// Extensions are advisory: Sniff inspects the first bytes of a file (JPEG
// SOI marker, ISO-BMFF ftyp brand) so callers can correct misnamed files
// before choosing a decode path.
//
//	ext := strings.ToLower(filepath.Ext(name))
//	switch mediatypes.KindOf(ext) {
//	case mediatypes.KindImage:
//	    // image variant path
//	case mediatypes.KindVideo:
//	    // thumbnail / transcode path
//	}
//
// The package has no dependencies beyond the standard library so every other
// package can import it without cycles.
package mediatypes
