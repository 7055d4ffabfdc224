package shellplugin

import (
	"fmt"
	"strings"
)

// ScriptEntry is a single configured command. It's either a RawCommandLine or a
// StructuredCommand; Normalize turns both into a Descriptor.
type ScriptEntry interface {
	descriptor() Descriptor
}

// RawCommandLine contains a command followed by its space separated arguments.
type RawCommandLine string

// StructuredCommand names the command and its arguments explicitly.
type StructuredCommand struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Descriptor is the normalized form of a ScriptEntry and describes exactly one process.
type Descriptor struct {
	Command string
	Args    []string
}

// Normalize converts the given entry into a Descriptor.
func Normalize(entry ScriptEntry) Descriptor {
	if entry == nil {
		return Descriptor{}
	}

	return entry.descriptor()
}

func (l RawCommandLine) descriptor() Descriptor {
	// Only single spaces separate arguments. Quotes aren't interpreted and repeated spaces
	// produce empty arguments.
	parts := strings.Split(string(l), " ")
	return Descriptor{Command: parts[0], Args: parts[1:]}
}

func (c StructuredCommand) descriptor() Descriptor {
	return Descriptor{Command: c.Command, Args: c.Args}
}

func (d Descriptor) descriptor() Descriptor {
	return d
}

// String returns the command line this descriptor would run
func (d Descriptor) String() string {
	return strings.Join(append([]string{d.Command}, d.Args...), " ")
}

// decodeEntry converts a decoded config value (string, map or an already typed entry) into a
// ScriptEntry. Values of any other type are stringified and treated as a raw command line.
func decodeEntry(raw interface{}) ScriptEntry {
	switch value := raw.(type) {
	case ScriptEntry:
		return value
	case string:
		return RawCommandLine(value)
	case map[string]interface{}:
		return decodeStructured(value)
	case nil:
		return RawCommandLine("")
	}

	return RawCommandLine(fmt.Sprint(raw))
}

func decodeStructured(value map[string]interface{}) StructuredCommand {
	var cmd StructuredCommand

	switch command := value["command"].(type) {
	case string:
		cmd.Command = command
	case nil:
	default:
		cmd.Command = fmt.Sprint(command)
	}

	rawArgs, ok := value["args"]
	if !ok {
		rawArgs = value["arguments"]
	}

	switch args := rawArgs.(type) {
	case []string:
		cmd.Args = append([]string{}, args...)
	case []interface{}:
		cmd.Args = make([]string, len(args))
		for idx, arg := range args {
			if str, ok := arg.(string); ok {
				cmd.Args[idx] = str
			} else {
				cmd.Args[idx] = fmt.Sprint(arg)
			}
		}
	case string:
		cmd.Args = []string{args}
	}

	return cmd
}
