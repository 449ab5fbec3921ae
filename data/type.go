package data

// FileType identifies the type of object in the filesystem.
type FileType int

const (
	FileTypeFile FileType = iota
	FileTypeDirectory
)

func (t FileType) String() string {
	switch t {
	case FileTypeDirectory:
		return "directory"
	default:
		return "file"
	}
}

// ParseFileType maps a listing entry type. Anything but "directory" is a file.
func ParseFileType(s string) FileType {
	if s == "directory" || s == "dir" {
		return FileTypeDirectory
	}
	return FileTypeFile
}
