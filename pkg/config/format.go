package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the config format from the file extension. Unknown
// extensions are treated as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// decodeStrict decodes data into v and rejects keys v does not declare.
func decodeStrict(format Format, data []byte, v interface{}) error {
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), v)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return fmt.Errorf("unknown field(s): %s", strings.Join(keys, ", "))
		}
		return nil
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return err
		}
		var extra json.RawMessage
		if err := dec.Decode(&extra); err != io.EOF {
			if err == nil {
				return fmt.Errorf("trailing JSON content")
			}
			return err
		}
		return nil
	}
}

// Encode renders v in the given format.
func Encode(format Format, v interface{}) ([]byte, error) {
	switch format {
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// DecodeMap decodes data into a generic map without schema checks.
func DecodeMap(format Format, data []byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), &out)
	case FormatYAML:
		err = yaml.Unmarshal(data, &out)
	default:
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
