// Package cli provides the command session and the plain line-based
// terminal front end for storyrules.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/storyrules/types"
)

// CLI handles terminal interaction with the user.
type CLI struct {
	Session   *Session
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI on stdin and stdout.
func New(s *Session) *CLI {
	return &CLI{
		Session: s,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the intro, then loops: prompt → input → handle → output. It
// returns when input ends or the user quits.
func (c *CLI) Run() {
	for _, line := range c.Session.Intro() {
		c.printLine(line)
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		result := c.Session.Handle(input)
		c.printResult(result)
		if result.Quit {
			return
		}
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}
