// Package watch invalidates cached derivatives when a source file changes in
// place.
//
// Folders are watched lazily: a folder is added the first time one of its
// assets has a derivative generated, so large libraries that are never viewed
// cost no inotify watches. Cache directories themselves are never watched.
package watch
