package buildinfo

import "github.com/rs/zerolog"

var (
	// GitCommit is set by govvv at build time.
	GitCommit = "n/a"
	// GitBranch  is set by govvv at build time.
	GitBranch = "n/a"
	// GitState  is set by govvv at build time.
	GitState = "n/a"
	// GitSummary is set by govvv at build time.
	GitSummary = "n/a"
	// BuildDate  is set by govvv at build time.
	BuildDate = "n/a"
	// Version  is set by govvv at build time.
	Version = "n/a"
)

// Summary provides a summary of git information in the binary.
type Summary struct {
	GitCommit  string `json:"git_commit"`
	GitBranch  string `json:"git_branch"`
	GitState   string `json:"git_state"`
	GitSummary string `json:"git_summary"`
	BuildDate  string `json:"build_date"`
	Version    string `json:"binary_version"`
}

// GetSummary returns a summary of git information.
func GetSummary() Summary {
	return Summary{
		GitCommit:  GitCommit,
		GitBranch:  GitBranch,
		GitState:   GitState,
		GitSummary: GitSummary,
		BuildDate:  BuildDate,
		Version:    Version,
	}
}

// MarshalZerologObject allows logging the summary with zerolog's Object.
func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("git_commit", s.GitCommit).
		Str("git_branch", s.GitBranch).
		Str("git_state", s.GitState).
		Str("git_summary", s.GitSummary).
		Str("build_date", s.BuildDate).
		Str("binary_version", s.Version)
}
