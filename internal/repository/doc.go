// Package repository implements the object storage environment repository:
// it maps an application, profile and label to a configuration object in a
// bucket and turns that object into an environment.
package repository
