package meta

const (
	// CLIAPIVersion used to communicate with callers scripting the binary
	CLIAPIVersion    = 1
	CLIAPIMinVersion = 1

	// LayoutFormatVersion identifies the on-disk chunk placement scheme
	LayoutFormatVersion    = 1
	LayoutFormatMinVersion = 1
)

// Following variables are filled in by main.go
var (
	Version   string
	GitCommit string
	BuildDate string
)

type VersionOutput struct {
	Version   string
	GitCommit string
	BuildDate string

	CLIAPIVersion          int
	CLIAPIMinVersion       int
	LayoutFormatVersion    int
	LayoutFormatMinVersion int
}

func GetVersion() *VersionOutput {
	return &VersionOutput{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,

		CLIAPIVersion:          CLIAPIVersion,
		CLIAPIMinVersion:       CLIAPIMinVersion,
		LayoutFormatVersion:    LayoutFormatVersion,
		LayoutFormatMinVersion: LayoutFormatMinVersion,
	}
}
