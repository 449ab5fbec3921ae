package cmd

// Flag types understood by the Parser.
const (
	FlagString = "string"
	FlagBool   = "bool"
	FlagInt    = "int"
)

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags
	Flags map[string]any

	// Raw unparsed arguments
	Raw []string
}

// CommandFlagSet defines the expected flags for a command
type CommandFlagSet struct {
	Flags map[string]*CommandFlag
}

// CommandFlag represents a single command-line flag
type CommandFlag struct {
	Name        string `json:"name"`              // e.g., "recursive"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "r")
	Type        string `json:"type"`              // FlagString, FlagBool or FlagInt
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}

// Arg returns the positional argument at index, or fallback.
func (a *CommandArgs) Arg(index int, fallback string) string {
	if index < len(a.Args) {
		return a.Args[index]
	}
	return fallback
}

func (a *CommandArgs) String(name string) string {
	value, _ := a.Flags[name].(string)
	return value
}

func (a *CommandArgs) Bool(name string) bool {
	value, _ := a.Flags[name].(bool)
	return value
}

func (a *CommandArgs) Int(name string) int64 {
	value, _ := a.Flags[name].(int64)
	return value
}
