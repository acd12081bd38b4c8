package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vrsandeep/storydesk/internal/form"
)

// Run reads commands line by line until end of input or "quit".
func (c *Console) Run(ctx context.Context) error {
	c.interactive = true
	c.ctx = ctx
	defer c.Close()

	if admin, err := c.app.Whoami(); err == nil {
		c.printf("Logged in as %s <%s>. Type help for commands.\n", admin.Name, admin.Email)
	} else {
		c.printf("Not logged in. Use: login <email> <password>\n")
	}

	scanner := bufio.NewScanner(c.in)
	for {
		c.printf("%s> ", c.prompt())
		if !scanner.Scan() {
			c.printf("\n")
			return scanner.Err()
		}
		args, err := splitArgs(scanner.Text())
		if err != nil {
			c.printf("Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		if err := c.Execute(ctx, args); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Execute runs one command and prints its error unless the notifier has
// already shown it.
func (c *Console) Execute(ctx context.Context, args []string) error {
	c.notify.failed.Store(false)
	err := c.Exec(ctx, args)
	if err != nil && !c.notify.failed.Load() && !errors.Is(err, form.ErrInvalid) {
		c.printf("Error: %v\n", err)
	}
	return err
}

func (c *Console) prompt() string {
	if c.current == nil {
		return "storydesk"
	}
	return "storydesk:" + c.current.Name()
}

// splitArgs splits a command line on spaces. Single or double quotes keep
// a value with spaces together.
func splitArgs(line string) ([]string, error) {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
