package api

// Version information, set at build time via ldflags:
//
//	-X github.com/MJE43/nh-parity-go/internal/api.EngineVersion=v0.3.0
var (
	EngineVersion = "dev"
	GitCommit     = "unknown"
	BuildTime     = "unknown"
)

// GetVersionInfo returns the current version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
	}
}
