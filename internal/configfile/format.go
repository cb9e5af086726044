package configfile

import "strings"

// Format identifies how a configuration object is encoded.
type Format int

const (
	// FormatProperties is the line-oriented key=value format.
	FormatProperties Format = iota + 1
	// FormatYAML is one or more YAML documents flattened into dotted keys.
	FormatYAML
)

// Formats returns the formats in the order objects are looked up.
func Formats() []Format {
	return []Format{FormatProperties, FormatYAML}
}

// Extension returns the object key suffix for the format.
func (f Format) Extension() string {
	switch f {
	case FormatProperties:
		return ".properties"
	case FormatYAML:
		return ".yml"
	default:
		return ""
	}
}

func (f Format) String() string {
	switch f {
	case FormatProperties:
		return "properties"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatForKey selects the format from the trailing extension of an object key.
func FormatForKey(key string) (Format, bool) {
	lower := strings.ToLower(key)
	switch {
	case strings.HasSuffix(lower, ".properties"):
		return FormatProperties, true
	case strings.HasSuffix(lower, ".yml"), strings.HasSuffix(lower, ".yaml"):
		return FormatYAML, true
	default:
		return 0, false
	}
}
