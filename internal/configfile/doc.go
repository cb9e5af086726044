// Package configfile decodes configuration objects into flat key/value maps.
// Properties files map directly; YAML documents are flattened so that nested
// mappings become dotted keys and sequence elements become indexed keys
// (servers[0].host).
package configfile
