package cmd

import (
	"strconv"
	"strings"

	"github.com/mwantia/objfs/data/errors"
)

// Parser parses user-defined arguments into flags
type Parser struct {
	flagSet *CommandFlagSet

	long  map[string]string
	short map[string]string
}

func NewParser(flagSet *CommandFlagSet) *Parser {
	if flagSet == nil {
		flagSet = &CommandFlagSet{}
	}

	p := &Parser{
		flagSet: flagSet,
		long:    make(map[string]string),
		short:   make(map[string]string),
	}
	for name, flag := range flagSet.Flags {
		p.long[flag.Name] = name
		if flag.Short != "" {
			p.short[flag.Short] = name
		}
	}
	return p
}

// Parse splits raw into flags and positional arguments. Everything after
// "--" is positional, so is a lone "-".
func (p *Parser) Parse(raw []string) (*CommandArgs, error) {
	args := &CommandArgs{
		Flags: make(map[string]any),
		Raw:   raw,
	}

	for name, flag := range p.flagSet.Flags {
		if flag.Default != nil {
			args.Flags[name] = flag.Default
		}
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		switch {
		case arg == "--":
			args.Args = append(args.Args, raw[i+1:]...)
			i = len(raw)

		case strings.HasPrefix(arg, "--"):
			key, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
			name, exists := p.long[key]
			if !exists {
				return nil, errors.InvalidArgument("parse flags", "unknown flag: --%s", key)
			}

			consumed, err := p.set(args, name, "--"+key, value, hasValue, raw[i+1:])
			if err != nil {
				return nil, err
			}
			i += consumed

		case strings.HasPrefix(arg, "-") && arg != "-":
			shorts := arg[1:]
			for j, char := range shorts {
				name, exists := p.short[string(char)]
				if !exists {
					return nil, errors.InvalidArgument("parse flags", "unknown flag: -%c", char)
				}

				// A value flag takes the rest of the group as its value.
				rest := shorts[j+1:]
				if p.flagSet.Flags[name].Type != FlagBool && rest != "" {
					if _, err := p.set(args, name, "-"+string(char), rest, true, nil); err != nil {
						return nil, err
					}
					break
				}

				consumed, err := p.set(args, name, "-"+string(char), "", false, raw[i+1:])
				if err != nil {
					return nil, err
				}
				i += consumed
			}

		default:
			args.Args = append(args.Args, arg)
		}
	}

	for name, flag := range p.flagSet.Flags {
		if _, exists := args.Flags[name]; flag.Required && !exists {
			return nil, errors.InvalidArgument("parse flags", "required flag: --%s", flag.Name)
		}
	}

	return args, nil
}

// set stores one flag and returns how many of next were used as its value.
func (p *Parser) set(args *CommandArgs, name, display, value string, hasValue bool, next []string) (int, error) {
	flag := p.flagSet.Flags[name]
	if flag.Type == FlagBool {
		if !hasValue {
			args.Flags[name] = true
			return 0, nil
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return 0, errors.InvalidArgument("parse flags", "flag %s expects a boolean, got '%s'", display, value)
		}
		args.Flags[name] = parsed
		return 0, nil
	}

	consumed := 0
	if !hasValue {
		if len(next) == 0 || strings.HasPrefix(next[0], "-") {
			return 0, errors.InvalidArgument("parse flags", "flag %s requires a value", display)
		}
		value, consumed = next[0], 1
	}

	if flag.Type == FlagInt {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, errors.InvalidArgument("parse flags", "flag %s expects an integer, got '%s'", display, value)
		}
		args.Flags[name] = parsed
		return consumed, nil
	}

	args.Flags[name] = value
	return consumed, nil
}
