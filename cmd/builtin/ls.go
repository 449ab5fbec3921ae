package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/objfs/cmd"
	"github.com/mwantia/objfs/data"
	"github.com/mwantia/objfs/mount"
)

type LsCommand struct {
}

func (ls *LsCommand) Name() string {
	return "ls"
}

func (ls *LsCommand) Description() string {
	return "List the children of a directory"
}

func (ls *LsCommand) Usage() string {
	return "ls [-l] [-m pattern] [path]"
}

func (ls *LsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) > 1 {
		return usage(ls)
	}

	dir, err := api.GetPath(args.Arg(0, data.HomeAlias))
	if err != nil {
		return fail(err)
	}

	var filter mount.DirectoryFilter
	if pattern := args.String("match"); pattern != "" {
		if filter, err = api.PathMatcher(pattern); err != nil {
			return fail(err)
		}
	}

	stream, err := api.NewDirectoryStream(ctx, dir, filter)
	if err != nil {
		return fail(err)
	}
	defer stream.Close()

	entries, err := stream.Iterator()
	if err != nil {
		return fail(err)
	}

	for entry, err := range entries {
		if err != nil {
			return fail(err)
		}

		name, _ := entry.FileName()
		if !args.Bool("long") {
			fmt.Fprintln(w, name.String())
			continue
		}

		// Listings prime the metadata cache, so this does not reach the store.
		stat, err := api.Stat(ctx, entry)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(w, "%-9s %10s %s %s\n", stat.Type, stat.HumanSize(), stat.ModTime.Format(time.DateTime), name.String())
	}

	return cmd.ExitOK, nil
}

func (ls *LsCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"long": {
				Name:        "long",
				Short:       "l",
				Type:        cmd.FlagBool,
				Description: "Show type, size and modification time",
			},
			"match": {
				Name:        "match",
				Short:       "m",
				Type:        cmd.FlagString,
				Description: "Only list paths matching a 'glob:' or 'regex:' pattern",
			},
		},
	}
}
