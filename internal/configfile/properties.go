package configfile

import (
	"github.com/magiconair/properties"
)

// decodeProperties parses key=value content. Placeholders such as ${name}
// are kept literally.
func decodeProperties(data []byte) (map[string]string, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return props.Map(), nil
}
