package configops

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
)

var configType = reflect.TypeOf((*config.Config)(nil)).Elem()

// ResolveConfigValue checks path against the config schema and converts raw
// to the type of the field it names. String fields keep raw verbatim, so
// numeric Discord IDs are not turned into numbers.
func ResolveConfigValue(path, raw string) (interface{}, error) {
	field, err := lookupConfigField(path)
	if err != nil {
		return nil, err
	}

	v := ParseConfigValue(raw)
	switch field.Kind() {
	case reflect.String:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return strings.TrimSpace(raw), nil
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%s expects true or false, got %q", path, raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		if i, ok := v.(int64); ok {
			return i, nil
		}
		return nil, fmt.Errorf("%s expects an integer, got %q", path, raw)
	case reflect.Slice:
		return parseStringList(raw)
	}
	return v, nil
}

func lookupConfigField(path string) (reflect.Type, error) {
	t := configType
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if t.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%s is not a config section", strings.Join(parts[:i], "."))
		}
		f, ok := fieldByKey(t, part)
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", strings.Join(parts[:i+1], "."))
		}
		t = f.Type
	}
	if t.Kind() == reflect.Struct {
		return nil, fmt.Errorf("%s is a config section, set one of its keys", path)
	}
	return t, nil
}

func fieldByKey(t reflect.Type, key string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name == key {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// parseStringList accepts a JSON array or a comma-separated list.
func parseStringList(raw string) ([]string, error) {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, "[") {
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("invalid list %q: %w", raw, err)
		}
		return out, nil
	}
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
