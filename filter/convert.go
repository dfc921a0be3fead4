package filter

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

// AsInt weakly converts a metadata value to an int64, 0 on error
func AsInt(v interface{}) int64 {
	res := struct {
		Value int64 `mapstructure:"value"`
	}{}
	_ = mapstructure.WeakDecode(map[string]interface{}{"value": v}, &res)
	return res.Value
}

// AsFloat weakly converts a metadata value to a float64, 0.0 on error
func AsFloat(v interface{}) float64 {
	res := struct {
		Value float64 `mapstructure:"value"`
	}{}
	_ = mapstructure.WeakDecode(map[string]interface{}{"value": v}, &res)
	return res.Value
}

// AsString weakly converts a metadata value to a string, "" on error
func AsString(v interface{}) string {
	res := struct {
		Value string `mapstructure:"value"`
	}{}
	_ = mapstructure.WeakDecode(map[string]interface{}{"value": v}, &res)
	return res.Value
}

// AsStringSlice converts a list value to a slice of strings. A plain string is split at commas.
func AsStringSlice(v interface{}) []string {
	if s, ok := v.(string); ok {
		return strings.Split(s, ",")
	}
	res := struct {
		Value []string `mapstructure:"value"`
	}{}
	_ = mapstructure.WeakDecode(map[string]interface{}{"value": v}, &res)
	return res.Value
}
