package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/mwantia/objfs/data/errors"
)

// Exit codes returned by Center.Execute besides those of the commands.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitUnknown = 127
)

// Center dispatches command lines to registered commands.
type Center struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

func NewCenter() *Center {
	return &Center{
		cmds: make(map[string]Command),
	}
}

func (c *Center) Register(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.cmds[cmd.Name()]; exists {
		return errors.Exist(nil, "register command", cmd.Name())
	}
	c.cmds[cmd.Name()] = cmd
	return nil
}

func (c *Center) Unregister(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.cmds[name]
	delete(c.cmds, name)
	return exists
}

// Commands returns the registered commands sorted by name.
func (c *Center) Commands() []Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := slices.Sorted(maps.Keys(c.cmds))
	cmds := make([]Command, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, c.cmds[name])
	}
	return cmds
}

// Execute runs args[0] with the remaining arguments against api.
func (c *Center) Execute(ctx context.Context, api API, w io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return ExitUsage, errors.InvalidArgument("execute", "no command given")
	}

	c.mu.RLock()
	cmd, exists := c.cmds[args[0]]
	c.mu.RUnlock()

	if !exists {
		return ExitUnknown, errors.InvalidArgument("execute", "unknown command '%s'", args[0])
	}

	parsed, err := NewParser(cmd.GetFlags()).Parse(args[1:])
	if err != nil {
		return ExitUsage, fmt.Errorf("%w\nusage: %s", err, cmd.Usage())
	}

	return cmd.Execute(ctx, api, parsed, w)
}

// PrintHelp writes one line per registered command.
func (c *Center) PrintHelp(w io.Writer) {
	for _, cmd := range c.Commands() {
		fmt.Fprintf(w, "  %-32s %s\n", cmd.Usage(), cmd.Description())
	}
}
