// Package skills enumerates the markdown skill definitions that the gate
// classifies. Discovery is deliberately shallow: one directory, one file
// pattern, no recursion.
package skills

// File is a candidate skill file. It is immutable for the duration of a scan.
type File struct {
	Path        string // Directory-joined path, the stable cache key
	Content     string // Raw UTF-8 content, forwarded verbatim to the classifier
	Name        string // Optional frontmatter name, used only as a report label
	Description string // Optional frontmatter description
}

// Label returns a human-readable label for the file.
func (f *File) Label() string {
	if f.Name != "" {
		return f.Name + " (" + f.Path + ")"
	}
	return f.Path
}

// Metadata represents the optional YAML frontmatter of a skill file
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}
