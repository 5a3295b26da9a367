package search

// Build information, overridden with -ldflags "-X projectsearch/internal/search.Version=..."
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
