package shellplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		entry    ScriptEntry
		expected Descriptor
	}{
		{
			name:     "raw with arguments",
			entry:    RawCommandLine("cmd a b"),
			expected: Descriptor{Command: "cmd", Args: []string{"a", "b"}},
		},
		{
			name:     "raw without arguments",
			entry:    RawCommandLine("make"),
			expected: Descriptor{Command: "make", Args: []string{}},
		},
		{
			name:     "repeated spaces produce empty arguments",
			entry:    RawCommandLine("cmd  a"),
			expected: Descriptor{Command: "cmd", Args: []string{"", "a"}},
		},
		{
			name:     "quotes aren't interpreted",
			entry:    RawCommandLine(`echo "a b"`),
			expected: Descriptor{Command: "echo", Args: []string{`"a`, `b"`}},
		},
		{
			name:     "structured",
			entry:    StructuredCommand{Command: "cp", Args: []string{"a b", "c"}},
			expected: Descriptor{Command: "cp", Args: []string{"a b", "c"}},
		},
		{
			name:     "descriptor",
			entry:    Descriptor{Command: "ls", Args: []string{"-l"}},
			expected: Descriptor{Command: "ls", Args: []string{"-l"}},
		},
		{
			name:     "nil",
			entry:    nil,
			expected: Descriptor{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.entry))
		})
	}
}

func TestDescriptorString(t *testing.T) {
	assert.Equal(t, "cp a b", Descriptor{Command: "cp", Args: []string{"a", "b"}}.String())
	assert.Equal(t, "make", Descriptor{Command: "make"}.String())
}

func TestDecodeEntry(t *testing.T) {
	assert.Equal(t, RawCommandLine("echo hi"), decodeEntry("echo hi"))
	assert.Equal(t, RawCommandLine(""), decodeEntry(nil))
	assert.Equal(t, RawCommandLine("42"), decodeEntry(42))
	assert.Equal(t, StructuredCommand{Command: "x"}, decodeEntry(StructuredCommand{Command: "x"}))

	assert.Equal(t, StructuredCommand{Command: "tar", Args: []string{"-x", "1"}}, decodeEntry(map[string]interface{}{
		"command":   "tar",
		"arguments": []interface{}{"-x", 1},
	}))
	assert.Equal(t, StructuredCommand{Command: "ls", Args: []string{"-la"}}, decodeEntry(map[string]interface{}{
		"command": "ls",
		"args":    "-la",
	}))
	assert.Equal(t, StructuredCommand{Command: "ls", Args: []string{"a"}}, decodeEntry(map[string]interface{}{
		"command": "ls",
		"args":    []string{"a"},
	}))
}
