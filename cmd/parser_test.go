package cmd_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/mwantia/objfs/cmd"
	objerrors "github.com/mwantia/objfs/data/errors"
)

func testFlagSet() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"recursive": {Name: "recursive", Short: "r", Type: cmd.FlagBool},
			"force":     {Name: "force", Short: "f", Type: cmd.FlagBool},
			"match":     {Name: "match", Short: "m", Type: cmd.FlagString},
			"depth":     {Name: "depth", Short: "d", Type: cmd.FlagInt, Default: int64(1)},
		},
	}
}

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name      string
		raw       []string
		args      []string
		recursive bool
		force     bool
		match     string
		depth     int64
	}{
		{"positional", []string{"a", "b"}, []string{"a", "b"}, false, false, "", 1},
		{"grouped shorts", []string{"-rf", "a"}, []string{"a"}, true, true, "", 1},
		{"long with value", []string{"--match=glob:*.txt", "a"}, []string{"a"}, false, false, "glob:*.txt", 1},
		{"long separate value", []string{"--depth", "3", "a"}, []string{"a"}, false, false, "", 3},
		{"short attached value", []string{"-rd5"}, nil, true, false, "", 5},
		{"short separate value", []string{"-m", "regex:.*", "a"}, []string{"a"}, false, false, "regex:.*", 1},
		{"explicit bool", []string{"--force=false", "a"}, []string{"a"}, false, false, "", 1},
		{"terminator", []string{"-r", "--", "-f", "b"}, []string{"-f", "b"}, true, false, "", 1},
		{"dash is positional", []string{"-"}, []string{"-"}, false, false, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := cmd.NewParser(testFlagSet()).Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !slices.Equal(args.Args, tt.args) {
				t.Errorf("Expected args %v, got %v", tt.args, args.Args)
			}
			if args.Bool("recursive") != tt.recursive || args.Bool("force") != tt.force {
				t.Errorf("Unexpected bool flags: %v", args.Flags)
			}
			if args.String("match") != tt.match {
				t.Errorf("Expected match '%s', got '%s'", tt.match, args.String("match"))
			}
			if args.Int("depth") != tt.depth {
				t.Errorf("Expected depth %d, got %d", tt.depth, args.Int("depth"))
			}
		})
	}
}

func TestParser_Errors(t *testing.T) {
	required := testFlagSet()
	required.Flags["match"].Required = true

	tests := []struct {
		name    string
		flagSet *cmd.CommandFlagSet
		raw     []string
	}{
		{"unknown long", testFlagSet(), []string{"--bogus"}},
		{"unknown short", testFlagSet(), []string{"-x"}},
		{"missing value", testFlagSet(), []string{"--match"}},
		{"value is a flag", testFlagSet(), []string{"-m", "-r"}},
		{"bad integer", testFlagSet(), []string{"--depth=deep"}},
		{"bad boolean", testFlagSet(), []string{"--force=maybe"}},
		{"required", required, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := cmd.NewParser(tt.flagSet).Parse(tt.raw); !errors.Is(err, objerrors.ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestParser_NoFlags(t *testing.T) {
	args, err := cmd.NewParser(nil).Parse([]string{"a"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if args.Arg(0, "") != "a" || args.Arg(1, "fallback") != "fallback" {
		t.Errorf("Unexpected positional arguments: %v", args.Args)
	}
	if _, err := cmd.NewParser(nil).Parse([]string{"-l"}); !errors.Is(err, objerrors.ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a flag without flag set, got %v", err)
	}
}
