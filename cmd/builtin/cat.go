package builtin

import (
	"context"
	"io"

	"github.com/mwantia/objfs/cmd"
)

type CatCommand struct {
}

func (c *CatCommand) Name() string {
	return "cat"
}

func (c *CatCommand) Description() string {
	return "Print the content of files"
}

func (c *CatCommand) Usage() string {
	return "cat <path>..."
}

func (c *CatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return usage(c)
	}

	targets, err := paths(api, args.Args)
	if err != nil {
		return fail(err)
	}

	for _, target := range targets {
		in, err := api.NewInputStream(ctx, target)
		if err != nil {
			return fail(err)
		}

		_, err = io.Copy(w, in)
		in.Close()
		if err != nil {
			return fail(err)
		}
	}

	return cmd.ExitOK, nil
}

func (c *CatCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
