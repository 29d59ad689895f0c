package main

import "github.com/xyproto/env/v2"

// Config holds the resolved settings for one compiler/interpreter
// invocation: command-line flags take priority, environment variables
// supply defaults when a flag wasn't given, following the teacher's
// flag-wins-over-nothing pattern: the env values become the flag
// defaults, so an explicit flag overrides them.
type Config struct {
	InputPath string
	OutPath   string
	Verbose   bool
	NoColor   bool
	NoHex     bool
}

// envDefaults reads AXIS_VERBOSE, AXIS_NO_COLOR, and AXIS_OUT so CI and
// shell-script callers can set these once instead of on every
// invocation; explicit flags on the command line always win.
func envDefaults() (verbose, noColor bool, out string) {
	return env.Bool("AXIS_VERBOSE"), env.Bool("AXIS_NO_COLOR"), env.StrOr("AXIS_OUT", "")
}
