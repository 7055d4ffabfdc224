package shellplugin

import (
	"context"
	"strings"
)

// Recognized option keys. Any other key passed to Merge or New is dropped.
const (
	KeyOnBuildStart = "onBuildStart"
	KeyOnBuildEnd   = "onBuildEnd"
	KeyOnBuildExit  = "onBuildExit"
	KeyVerbose      = "verbose"
)

// Delimiter separates several commands passed as a single string
const Delimiter = "&&"

var hookKeys = []string{KeyOnBuildStart, KeyOnBuildEnd, KeyOnBuildExit}

// Options contains the resolved plugin configuration. It isn't modified after New returns.
type Options struct {
	OnBuildStart []ScriptEntry
	OnBuildEnd   []ScriptEntry
	OnBuildExit  []ScriptEntry
	Verbose      bool
}

// DefaultOptions returns a new map containing the default value for every recognized key
func DefaultOptions() map[string]interface{} {
	return map[string]interface{}{
		KeyOnBuildStart: []interface{}{},
		KeyOnBuildEnd:   []interface{}{},
		KeyOnBuildExit:  []interface{}{},
		KeyVerbose:      false,
	}
}

// Merge returns a new map with exactly the keys of defaults. Each value is taken from user if
// user contains the key (even if the value is nil) and from defaults otherwise.
func Merge(user, defaults map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(defaults))
	for key, value := range defaults {
		if userValue, ok := user[key]; ok {
			value = userValue
		}
		result[key] = value
	}

	return result
}

// Validate replaces every hook value that is a single string with the list of commands joined by
// Delimiter. Lists are left as they are. opts is modified in place and returned.
func Validate(opts map[string]interface{}) map[string]interface{} {
	for _, key := range hookKeys {
		var joined string
		switch value := opts[key].(type) {
		case string:
			joined = value
		case RawCommandLine:
			joined = string(value)
		default:
			continue
		}

		parts := strings.Split(joined, Delimiter)
		entries := make([]interface{}, len(parts))
		for idx, part := range parts {
			entries[idx] = strings.TrimSpace(part)
		}
		opts[key] = entries
	}

	return opts
}

// Resolve merges user over the defaults, splits joined command strings and decodes the result.
// It never fails: values with an unexpected type are replaced by their default.
func Resolve(ctx context.Context, user map[string]interface{}) Options {
	merged := Validate(Merge(user, DefaultOptions()))

	return Options{
		OnBuildStart: decodeEntries(ctx, KeyOnBuildStart, merged[KeyOnBuildStart]),
		OnBuildEnd:   decodeEntries(ctx, KeyOnBuildEnd, merged[KeyOnBuildEnd]),
		OnBuildExit:  decodeEntries(ctx, KeyOnBuildExit, merged[KeyOnBuildExit]),
		Verbose:      decodeBool(ctx, KeyVerbose, merged[KeyVerbose]),
	}
}

func decodeEntries(ctx context.Context, key string, raw interface{}) []ScriptEntry {
	var items []interface{}
	switch value := raw.(type) {
	case nil:
		return []ScriptEntry{}
	case []ScriptEntry:
		return append([]ScriptEntry{}, value...)
	case []string:
		items = make([]interface{}, len(value))
		for idx, item := range value {
			items[idx] = item
		}
	case []interface{}:
		items = value
	default:
		log(ctx).Debug().
			Str("option", key).
			Msgf("ignoring value of type %T, expected a string or a list", raw)
		return []ScriptEntry{}
	}

	result := make([]ScriptEntry, len(items))
	for idx, item := range items {
		result[idx] = decodeEntry(item)
	}

	return result
}

func decodeBool(ctx context.Context, key string, raw interface{}) bool {
	switch value := raw.(type) {
	case bool:
		return value
	case nil:
		return false
	}

	log(ctx).Debug().
		Str("option", key).
		Msgf("ignoring value of type %T, expected a bool", raw)
	return false
}

// Entries returns the configured entries for the given hook key
func (o Options) Entries(key string) []ScriptEntry {
	switch key {
	case KeyOnBuildStart:
		return o.OnBuildStart
	case KeyOnBuildEnd:
		return o.OnBuildEnd
	case KeyOnBuildExit:
		return o.OnBuildExit
	}

	return nil
}
