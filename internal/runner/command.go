package runner

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

// Input describes what a benchmarked command reads on stdin. At most one of
// Seq, File and Text is set; the zero value means no input (/dev/null).
type Input struct {
	// Seq feeds the integers 1..Seq, one per line.
	Seq  int
	File string
	Text string
}

// Open returns a fresh reader for one run, or nil when there is no input.
func (in Input) Open() (io.ReadCloser, error) {
	switch {
	case in.File != "":
		return os.Open(in.File)
	case in.Seq > 0:
		var buf bytes.Buffer
		for i := 1; i <= in.Seq; i++ {
			buf.WriteString(strconv.Itoa(i))
			buf.WriteByte('\n')
		}
		return io.NopCloser(&buf), nil
	case in.Text != "":
		return io.NopCloser(strings.NewReader(in.Text)), nil
	}
	return nil, nil
}

func (in Input) String() string {
	switch {
	case in.File != "":
		return fmt.Sprintf("file(%s)", in.File)
	case in.Seq > 0:
		return fmt.Sprintf("seq(1..%d)", in.Seq)
	case in.Text != "":
		return fmt.Sprintf("text(%d bytes)", len(in.Text))
	}
	return "none"
}

// CommandSpec is one benchmark subject. It is not modified once built.
type CommandSpec struct {
	Name  string
	Path  string
	Args  []string
	Stdin Input
	// Timeout overrides the runner's per-run timeout when positive.
	Timeout time.Duration
	// Shell is set when Path is a shell running the command line in Args.
	// Exit status 127 then means the shell could not find the command.
	Shell bool
}

func (s *CommandSpec) String() string {
	return strings.Join(append([]string{s.Path}, s.Args...), " ")
}

// NewShellCommand runs expr through shell with "-c".
func NewShellCommand(name, shell, expr string, stdin Input) *CommandSpec {
	return &CommandSpec{
		Name:  name,
		Path:  shell,
		Args:  []string{"-c", expr},
		Stdin: stdin,
		Shell: true,
	}
}

// ParseCommandLine splits line with shell-like quoting rules, without
// running a shell.
func ParseCommandLine(name, line string, stdin Input) (*CommandSpec, error) {
	parts, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("unable to split command line '%s': %w", line, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command line for '%s'", name)
	}
	return &CommandSpec{
		Name:  name,
		Path:  parts[0],
		Args:  parts[1:],
		Stdin: stdin,
	}, nil
}
