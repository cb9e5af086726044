// Package filestore implements objectstore.Store on a local directory, for
// development and tests.
package filestore
