// Package internalcheck holds policy tests over the packages that handle
// secrets: the protocol core, its modular arithmetic and the wire codec.
//
// The tests load the packages with golang.org/x/tools/go/packages and walk
// their syntax. They flag byte-slice comparisons with == or !=, hex
// formatting verbs that could print secret material, and imports of
// math/rand.
//
// # Internal Use Only
//
// The package has no API. It exists only for its tests.
package internalcheck
