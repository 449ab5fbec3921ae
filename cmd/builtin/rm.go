package builtin

import (
	"context"
	"io"

	"github.com/mwantia/objfs/cmd"
	"github.com/mwantia/objfs/data/errors"
)

type RmCommand struct {
}

func (rm *RmCommand) Name() string {
	return "rm"
}

func (rm *RmCommand) Description() string {
	return "Remove files and directories"
}

func (rm *RmCommand) Usage() string {
	return "rm [-r] [-f] <path>..."
}

func (rm *RmCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return usage(rm)
	}

	targets, err := paths(api, args.Args)
	if err != nil {
		return fail(err)
	}

	for _, target := range targets {
		err := api.Delete(ctx, target, args.Bool("recursive"))
		if errors.Is(err, errors.ErrNotExist) && args.Bool("force") {
			continue
		}
		if err != nil {
			return fail(err)
		}
	}

	return cmd.ExitOK, nil
}

func (rm *RmCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"recursive": {
				Name:        "recursive",
				Short:       "r",
				Type:        cmd.FlagBool,
				Description: "Remove directories and their content",
			},
			"force": {
				Name:        "force",
				Short:       "f",
				Type:        cmd.FlagBool,
				Description: "Ignore paths that do not exist",
			},
		},
	}
}
