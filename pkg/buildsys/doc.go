// Package buildsys implements a minimal build host: a build script (Starlark or YAML) lists shell
// steps which are run with mvdan.cc/sh, and plugins can tap into the compile, emit and done hooks
// around them.
package buildsys
