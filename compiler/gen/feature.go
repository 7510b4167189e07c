package gen

var (
	// FeatureUmbrella provides a feature-flag for the project aggregation file.
	FeatureUmbrella = Feature{
		Name:        "umbrella",
		Stage:       Stable,
		Default:     true,
		Description: "Umbrella writes one file declaring and including every unit in declaration order",
		file:        UmbrellaFile,
	}

	// FeatureBuild provides a feature-flag for the build descriptor.
	FeatureBuild = Feature{
		Name:        "build",
		Stage:       Beta,
		Default:     true,
		Description: "Build writes a build descriptor listing every emitted, non-external class once",
		file:        BuildFile,
	}

	// FeatureComments provides a feature-flag for emitting entity comments
	// as documentation.
	FeatureComments = Feature{
		Name:        "comments",
		Stage:       Stable,
		Default:     true,
		Description: "Comments copies entity comments into the generated declarations",
	}

	// AllFeatures holds a list of all feature-flags.
	AllFeatures = []Feature{
		FeatureUmbrella,
		FeatureBuild,
		FeatureComments,
	}
)

// FeatureStage describes the stage of the codegen feature.
type FeatureStage int

const (
	_ FeatureStage = iota

	// Experimental features are in development.
	Experimental

	// Alpha features are complete but their output may still change.
	Alpha

	// Beta features are not expected to change their output.
	Beta

	// Stable features are Beta features that have been in use for a while.
	Stable
)

// String implements fmt.Stringer.
func (s FeatureStage) String() string {
	switch s {
	case Experimental:
		return "experimental"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case Stable:
		return "stable"
	}
	return "unknown"
}

// A Feature of the casegen codegen.
type Feature struct {
	// Name of the feature.
	Name string

	// Stage of the feature.
	Stage FeatureStage

	// Default values indicates if this feature is enabled by default.
	Default bool

	// A Description of this feature.
	Description string

	// file is the project file the feature writes. It is removed when the
	// feature is disabled.
	file ProjectFile
}

// FeatureByName returns the feature named name.
func FeatureByName(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}
