package gen

import "github.com/syssam/casegen/model"

// ProjectFile identifies a project-level output file.
type ProjectFile int

// Project files.
const (
	_ ProjectFile = iota
	// UmbrellaFile aggregates every unit in declaration order.
	UmbrellaFile
	// BuildFile lists the objects to build.
	BuildFile
)

// File is one rendered output file. Path is relative to the target
// directory and uses forward slashes.
type File struct {
	Path    string
	Content []byte
}

// UnitGenerator renders the files of one compilable unit.
type UnitGenerator interface {
	// UnitFiles returns the files of unit, in a stable order.
	UnitFiles(v *View, unit model.ID) ([]File, error)
}

// ProjectGenerator renders the project-level files.
type ProjectGenerator interface {
	// ProjectFiles maps the project files the backend writes to their paths.
	ProjectFiles(project string) map[ProjectFile]string
	// ProjectFile renders one of the files listed by ProjectFiles.
	ProjectFile(v *View, kind ProjectFile) (File, error)
}

// SupportGenerator renders files that do not depend on the model content,
// such as runtime helpers shared by every unit. Backends implement it
// optionally.
type SupportGenerator interface {
	SupportFiles(v *View) ([]File, error)
}

// Backend renders a model in one target language.
//
//	┌───────────────────────────────────────────┐
//	│                Generator                  │
//	│  (views, staleness, parallel emission)    │
//	└─────────────────────┬─────────────────────┘
//	                      │ uses
//	                      ▼
//	┌───────────────────────────────────────────┐
//	│                 Backend                   │
//	│  (unit, project and support rendering)    │
//	└─────────────────────┬─────────────────────┘
//	              ┌───────┴───────┐
//	              ▼               ▼
//	           gen/cpp        gen/golang
type Backend interface {
	// Name returns the backend name (e.g., "cpp", "go").
	Name() string
	UnitGenerator
	ProjectGenerator
}
