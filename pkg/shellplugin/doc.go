// Package shellplugin runs user supplied shell commands when a build starts, before its output is
// emitted and after it is done.
//
// Commands are configured either as plain strings ("cmd arg1 arg2") or as explicit command/args
// pairs. Several string commands can be joined with "&&". Every command is spawned in the
// background with the parent's stdio; the plugin never waits for it and never fails the build
// because of it. Failures are only logged.
package shellplugin
