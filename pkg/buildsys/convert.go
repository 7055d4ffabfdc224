package buildsys

import (
	"reflect"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// starlarkToGo converts Starlark values into plain Go values (string, bool, int64, float64,
// []interface{} and map[string]interface{}). Dict keys have to be strings.
func starlarkToGo(value starlark.Value) (interface{}, error) {
	switch value := value.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return value.GoString(), nil
	case StarlarkPath:
		return string(value), nil
	case starlark.Bool:
		return bool(value), nil
	case starlark.Int:
		number, ok := value.Int64()
		if !ok {
			return nil, eris.Errorf("integer %s is too large", value.String())
		}
		return number, nil
	case starlark.Float:
		return float64(value), nil
	case *starlark.Dict:
		result := make(map[string]interface{}, value.Len())
		for _, item := range value.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, eris.Errorf("found key type %s in dict but only strings are supported", item[0].Type())
			}

			converted, err := starlarkToGo(item[1])
			if err != nil {
				return nil, eris.Wrapf(err, "failed to convert %s", key.GoString())
			}
			result[key.GoString()] = converted
		}
		return result, nil
	case starlark.Indexable:
		// lists and tuples
		result := make([]interface{}, value.Len())
		for idx := 0; idx < value.Len(); idx++ {
			converted, err := starlarkToGo(value.Index(idx))
			if err != nil {
				return nil, err
			}
			result[idx] = converted
		}
		return result, nil
	}

	return nil, eris.Errorf("encountered unsupported type %s", value.Type())
}

func goToStarlark(value interface{}) (starlark.Value, error) {
	// handle a few simple and common cases first
	switch value := value.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case int64:
		return starlark.MakeInt64(value), nil
	case bool:
		return starlark.Bool(value), nil
	case float32:
		return starlark.Float(value), nil
	case float64:
		return starlark.Float(value), nil
	case []string:
		items := make(starlark.Tuple, len(value))
		for idx, raw := range value {
			items[idx] = starlark.String(raw)
		}

		return items, nil
	}

	refValue := reflect.ValueOf(value)
	var err error
	switch refValue.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]starlark.Value, refValue.Len())
		for idx := 0; idx < refValue.Len(); idx++ {
			items[idx], err = goToStarlark(refValue.Index(idx).Interface())
			if err != nil {
				return nil, err
			}
		}

		return starlark.NewList(items), nil
	case reflect.Map:
		dict := starlark.NewDict(refValue.Len())
		iter := refValue.MapRange()
		for iter.Next() {
			key, err := goToStarlark(iter.Key().Interface())
			if err != nil {
				return nil, err
			}

			value, err := goToStarlark(iter.Value().Interface())
			if err != nil {
				return nil, err
			}

			err = dict.SetKey(key, value)
			if err != nil {
				return nil, err
			}
		}

		return dict, nil
	}

	return nil, eris.Errorf("encountered unsupported type %v", refValue.Kind())
}

// StarlarkPath is a string that refers to a file system path
type StarlarkPath string

func (p StarlarkPath) String() string {
	return starlark.String(p).String()
}

func (p StarlarkPath) Type() string {
	return "path"
}

func (p StarlarkPath) Freeze() {}

func (p StarlarkPath) Truth() starlark.Bool {
	return p != ""
}

func (p StarlarkPath) Hash() (uint32, error) {
	return starlark.String(p).Hash()
}
