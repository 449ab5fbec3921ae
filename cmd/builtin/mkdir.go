package builtin

import (
	"context"
	"io"

	"github.com/mwantia/objfs/cmd"
	"github.com/mwantia/objfs/data/errors"
)

type MkdirCommand struct {
}

func (m *MkdirCommand) Name() string {
	return "mkdir"
}

func (m *MkdirCommand) Description() string {
	return "Create directories and their missing parents"
}

func (m *MkdirCommand) Usage() string {
	return "mkdir [-p] <path>..."
}

func (m *MkdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return usage(m)
	}

	targets, err := paths(api, args.Args)
	if err != nil {
		return fail(err)
	}

	for _, target := range targets {
		err := api.CreateDirectory(ctx, target)
		if errors.Is(err, errors.ErrExist) && args.Bool("parents") {
			continue
		}
		if err != nil {
			return fail(err)
		}
	}

	return cmd.ExitOK, nil
}

func (m *MkdirCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"parents": {
				Name:        "parents",
				Short:       "p",
				Type:        cmd.FlagBool,
				Description: "No error if the directory exists",
			},
		},
	}
}
