package payload

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// Format identifies the encoding of a description payload.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
	// FormatText is a raw model reply that contains a JSON object somewhere in it.
	FormatText Format = "text"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, yaml, msgpack or text)", name)
	}
}

// FormatFromContentType maps an HTTP Content-Type to a Format, defaulting to JSON.
func FormatFromContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML
	case "application/msgpack", "application/x-msgpack", "application/vnd.msgpack":
		return FormatMsgpack
	case "text/plain", "text/markdown":
		return FormatText
	default:
		return FormatJSON
	}
}

// FormatFromPath picks a Format from a file extension, defaulting to text so
// that saved model replies of any shape are accepted.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".msgpack", ".mp":
		return FormatMsgpack
	default:
		return FormatText
	}
}
