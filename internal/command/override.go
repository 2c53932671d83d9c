package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoOverride        = errors.New("override file not found")
	ErrMalformedOverride = errors.New("malformed override file")
)

// LoadOverride reads a phrase -> value record from a .json, .yaml or .yml
// file. A value naming a handler kind ("time", "joke", ...) binds that
// handler; any other value is used as a static response.
func LoadOverride(path string) (map[string]Handler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoOverride, path, err)
		}
		return nil, fmt.Errorf("read override %s: %w", path, err)
	}

	raw := map[string]string{}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrMalformedOverride, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedOverride, path, err)
	}

	return parseOverride(raw)
}

func parseOverride(raw map[string]string) (map[string]Handler, error) {
	out := make(map[string]Handler, len(raw))

	for phrase, value := range raw {
		key := normalize(phrase)
		if key == "" {
			return nil, fmt.Errorf("%w: empty phrase", ErrMalformedOverride)
		}
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%w: empty value for %q", ErrMalformedOverride, phrase)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: phrase %q repeats after normalising", ErrMalformedOverride, key)
		}

		if k, ok := ParseKind(strings.TrimSpace(value)); ok {
			out[key] = Bind(k)
		} else {
			out[key] = Static(value)
		}
	}

	return out, nil
}
