package meta

const (
	// IPCRecordVersion is the wire record version this server speaks.
	IPCRecordVersion = 0
)

// Following variables are filled in by the build.
var (
	Version   string
	GitCommit string
	BuildDate string
)

type VersionOutput struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`

	IPCRecordVersion int `json:"ipcRecordVersion"`
}

func GetVersion() VersionOutput {
	return VersionOutput{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,

		IPCRecordVersion: IPCRecordVersion,
	}
}
