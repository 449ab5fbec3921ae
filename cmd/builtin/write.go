package builtin

import (
	"context"
	goerrors "errors"
	"io"
	"strings"

	"github.com/mwantia/objfs/cmd"
	"github.com/mwantia/objfs/data"
)

type WriteCommand struct {
}

func (wc *WriteCommand) Name() string {
	return "write"
}

func (wc *WriteCommand) Description() string {
	return "Replace or extend a file with the given text"
}

func (wc *WriteCommand) Usage() string {
	return "write [-a] [-n] <path> <text>..."
}

func (wc *WriteCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) < 1 {
		return usage(wc)
	}

	target, err := api.GetPath(args.Args[0])
	if err != nil {
		return fail(err)
	}

	options := data.OptionTruncateExisting
	if args.Bool("append") {
		options = data.OptionAppend
	}
	if args.Bool("new") {
		options |= data.OptionCreateNew
	}

	out, err := api.NewOutputStream(ctx, target, options)
	if err != nil {
		return fail(err)
	}

	_, err = io.WriteString(out, strings.Join(args.Args[1:], " "))
	// The upload happens on Close.
	if err := goerrors.Join(err, out.Close()); err != nil {
		return fail(err)
	}

	return cmd.ExitOK, nil
}

func (wc *WriteCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"append": {
				Name:        "append",
				Short:       "a",
				Type:        cmd.FlagBool,
				Description: "Append to the end of the file",
			},
			"new": {
				Name:        "new",
				Short:       "n",
				Type:        cmd.FlagBool,
				Description: "Fail if the file already exists",
			},
		},
	}
}
