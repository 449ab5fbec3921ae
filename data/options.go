package data

import "strings"

// OpenOption controls how a channel is opened.
// Options can be combined using bitwise OR.
type OpenOption int

const (
	OptionRead OpenOption = 1 << iota
	OptionWrite
	OptionAppend
	OptionCreateNew
	OptionTruncateExisting
	OptionDeleteOnClose
)

// writeOptions are the options that need a staged, uploadable copy.
const writeOptions = OptionWrite | OptionAppend | OptionCreateNew | OptionTruncateExisting

func (o OpenOption) Has(option OpenOption) bool {
	return o&option != 0
}

// IsReadOnly reports whether no write option is present.
// The zero value opens for reading.
func (o OpenOption) IsReadOnly() bool {
	return o&writeOptions == 0
}

func (o OpenOption) CanRead() bool {
	return o.Has(OptionRead) || o.IsReadOnly()
}

func (o OpenOption) CanWrite() bool {
	return !o.IsReadOnly()
}

var optionNames = []struct {
	option OpenOption
	name   string
}{
	{OptionRead, "READ"},
	{OptionWrite, "WRITE"},
	{OptionAppend, "APPEND"},
	{OptionCreateNew, "CREATE_NEW"},
	{OptionTruncateExisting, "TRUNCATE_EXISTING"},
	{OptionDeleteOnClose, "DELETE_ON_CLOSE"},
}

func (o OpenOption) String() string {
	names := []string{}
	for _, entry := range optionNames {
		if o.Has(entry.option) {
			names = append(names, entry.name)
		}
	}
	if len(names) == 0 {
		return "READ"
	}
	return strings.Join(names, "|")
}

// AccessMode is checked by CheckAccess.
type AccessMode int

const (
	AccessRead AccessMode = 1 << iota
	AccessWrite
	AccessExecute
)

func (m AccessMode) Has(mode AccessMode) bool {
	return m&mode != 0
}
