package configfile

import (
	"fmt"
	"io"

	"github.com/eugenenazirov/bucket-config-server/internal/environment"
)

type decoderFunc func(data []byte) (map[string]string, error)

var decoders = map[Format]decoderFunc{
	FormatProperties: decodeProperties,
	FormatYAML:       decodeYAML,
}

// Decode drains and closes body, then parses its content with the given format.
// Any read or parse failure wraps environment.ErrUnloadableContent.
func Decode(format Format, body io.ReadCloser) (values map[string]string, err error) {
	defer func() {
		if closeErr := body.Close(); closeErr != nil && err == nil {
			values = nil
			err = fmt.Errorf("%w: close %s stream: %w", environment.ErrUnloadableContent, format, closeErr)
		}
	}()

	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %d", environment.ErrUnloadableContent, int(format))
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s stream: %w", environment.ErrUnloadableContent, format, err)
	}

	values, err = decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", environment.ErrUnloadableContent, format, err)
	}
	return values, nil
}
