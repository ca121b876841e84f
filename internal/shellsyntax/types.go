// Package shellsyntax turns a raw input line into a Pipeline: an ordered
// list of Commands connected by pipes, plus redirections and a background
// flag. It performs no execution — see internal/launcher for that.
package shellsyntax

import "strings"

// Command is a single stage of a Pipeline: an argv, plus optional
// input/output redirection paths.
type Command struct {
	Argv       []string
	InputPath  string // "" means no input redirection
	OutputPath string // "" means no output redirection
	AppendOut  bool   // only meaningful when OutputPath != ""
}

// Empty reports whether the Command has no arguments and should be
// dropped during parse finalization.
func (c *Command) Empty() bool {
	return len(c.Argv) == 0
}

// String renders the Command the way job listings print it: argv tokens
// space-joined. Redirections are not re-rendered, so the printable form a
// Job tracks (this re-serialization, via Pipeline.String) omits them.
func (c *Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Pipeline is a left-to-right chain of Commands whose standard streams
// feed into one another, plus a background flag. Parse can return one
// with no Commands; Empty reports that case.
type Pipeline struct {
	Commands   []*Command
	Background bool
}

// Empty reports whether the Pipeline has no commands and must not be
// launched.
func (p *Pipeline) Empty() bool {
	return len(p.Commands) == 0
}

// String joins Commands with " | ", matching the printable form used in
// job listings. The background flag is not part of this
// form; callers that render a job listing append " &" themselves based
// on the Job's background flag.
func (p *Pipeline) String() string {
	parts := make([]string, len(p.Commands))
	for i, c := range p.Commands {
		parts[i] = c.String()
	}
	return strings.Join(parts, " | ")
}
