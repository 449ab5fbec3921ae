package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/objfs/cmd"
)

type StatCommand struct {
}

func (s *StatCommand) Name() string {
	return "stat"
}

func (s *StatCommand) Description() string {
	return "Show the basic attributes of a path"
}

func (s *StatCommand) Usage() string {
	return "stat <path>..."
}

func (s *StatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, w io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return usage(s)
	}

	targets, err := paths(api, args.Args)
	if err != nil {
		return fail(err)
	}

	for _, target := range targets {
		stat, err := api.Stat(ctx, target)
		if err != nil {
			return fail(err)
		}

		fmt.Fprintf(w, "  Key: %s\n", stat.Key)
		fmt.Fprintf(w, " Type: %s\n", stat.Type)
		fmt.Fprintf(w, " Size: %d (%s)\n", stat.Size, stat.HumanSize())
		fmt.Fprintf(w, "Mtime: %s\n", stat.ModTime.Format(time.RFC3339))
		if stat.IsRegular() {
			fmt.Fprintf(w, " Mime: %s\n", stat.ContentType)
		}
		fmt.Fprintf(w, "  Tag: %s\n", stat.FileKey())
	}

	return cmd.ExitOK, nil
}

func (s *StatCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
