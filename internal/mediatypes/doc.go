// Package mediatypes holds the primitive types shared by the index, the
// repository adapters and the iterator: media kinds, orientations, traversal
// orders and the extension tables used to classify files.
//
// It has no dependencies beyond the standard library so it can be imported
// anywhere without creating cycles.
//
//	kind := mediatypes.KindOf("holiday/IMG_0001.JPG") // KindImage
//	o := mediatypes.OrientationFor(4000, 3000, 90)    // OrientationPortrait
package mediatypes
