package builtin

import (
	"github.com/mwantia/objfs/cmd"
	"github.com/mwantia/objfs/data"
)

// InitBuiltin registers every builtin command with center.
func InitBuiltin(center *cmd.Center) error {
	for _, command := range []cmd.Command{
		&LsCommand{},
		&StatCommand{},
		&CatCommand{},
		&WriteCommand{},
		&MkdirCommand{},
		&RmCommand{},
		&CpCommand{},
		&MvCommand{},
	} {
		if err := center.Register(command); err != nil {
			return err
		}
	}
	return nil
}

func fail(err error) (int, error) {
	return cmd.ExitFailure, err
}

func usage(command cmd.Command) (int, error) {
	return cmd.ExitUsage, &usageError{command: command}
}

type usageError struct {
	command cmd.Command
}

func (e *usageError) Error() string {
	return "usage: " + e.command.Usage()
}

// paths parses every argument into a path of api.
func paths(api cmd.API, args []string) ([]data.ObjectPath, error) {
	result := make([]data.ObjectPath, 0, len(args))
	for _, arg := range args {
		p, err := api.GetPath(arg)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}
