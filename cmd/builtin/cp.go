package builtin

import (
	"context"
	"io"

	"github.com/mwantia/objfs/cmd"
)

// replaceFlag is shared by cp and mv.
var replaceFlag = &cmd.CommandFlag{
	Name:        "force",
	Short:       "f",
	Type:        cmd.FlagBool,
	Description: "Replace an existing target",
}

type CpCommand struct {
}

func (cp *CpCommand) Name() string {
	return "cp"
}

func (cp *CpCommand) Description() string {
	return "Copy a file, directories are copied without content"
}

func (cp *CpCommand) Usage() string {
	return "cp [-f] <source> <target>"
}

func (cp *CpCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) != 2 {
		return usage(cp)
	}

	pair, err := paths(api, args.Args)
	if err != nil {
		return fail(err)
	}
	if err := api.Copy(ctx, pair[0], pair[1], args.Bool("force")); err != nil {
		return fail(err)
	}
	return cmd.ExitOK, nil
}

func (cp *CpCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{"force": replaceFlag},
	}
}

type MvCommand struct {
}

func (mv *MvCommand) Name() string {
	return "mv"
}

func (mv *MvCommand) Description() string {
	return "Move a file or an empty directory"
}

func (mv *MvCommand) Usage() string {
	return "mv [-f] <source> <target>"
}

func (mv *MvCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) != 2 {
		return usage(mv)
	}

	pair, err := paths(api, args.Args)
	if err != nil {
		return fail(err)
	}
	if err := api.Move(ctx, pair[0], pair[1], args.Bool("force")); err != nil {
		return fail(err)
	}
	return cmd.ExitOK, nil
}

func (mv *MvCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{"force": replaceFlag},
	}
}
