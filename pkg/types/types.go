package types

// EnvironmentDescriptor locates an interpreter environment on disk.
// It is never persisted; callers rebuild it from the project root.
type EnvironmentDescriptor struct {
	Kind           EnvKind
	Root           string
	Interpreter    string
	PackageManager string
	// SitePackages is fixed for the portable layout and globbed at use time
	// for the standard layout (lib/python3.X/site-packages).
	SitePackages string
}
