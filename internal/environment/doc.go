// Package environment defines the resolved configuration model served to
// clients and the Repository contract implemented by configuration backends.
package environment
