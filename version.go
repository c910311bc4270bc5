package main

// Injected at build time via -ldflags
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
