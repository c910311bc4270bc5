package credential

import "os"

// Resolver applies the fixed precedence order over credential sources:
// explicit custom path, then the token environment variable, then the
// auto-detect candidate list in fixed order.
type Resolver struct {
	getenv     func(string) string
	candidates func() []Candidate
}

// NewResolver creates a resolver over the real environment and the
// platform's auto-detect locations
func NewResolver() *Resolver {
	return &Resolver{
		getenv:     os.Getenv,
		candidates: autoCandidates,
	}
}

// NewResolverWithLookup creates a resolver with an explicit environment
// lookup and candidate list, for callers that need to pin the sources
func NewResolverWithLookup(getenv func(string) string, candidates func() []Candidate) *Resolver {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if candidates == nil {
		candidates = func() []Candidate { return nil }
	}
	return &Resolver{getenv: getenv, candidates: candidates}
}

// Resolve returns the effective credential, or nil when every source
// misses. First success wins.
func (r *Resolver) Resolve(customPath string) *Resolved {
	if customPath != "" {
		if resolved := readCandidate(Candidate{Path: customPath}); resolved != nil {
			resolved.Source = SourceCustom
			resolved.Path = customPath
			return resolved
		}
	}

	// The env var holds the token itself, not credential JSON
	if token := r.getenv(EnvTokenVar); token != "" {
		return &Resolved{
			Token:  token,
			Source: SourceEnv,
			Path:   EnvTokenVar,
		}
	}

	for _, c := range r.candidates() {
		if resolved := readCandidate(c); resolved != nil {
			resolved.Source = SourceAuto
			resolved.Path = c.Path
			return resolved
		}
	}

	return nil
}

// SourceLabel reports which tier would produce the credential right now,
// as a tagged string for diagnostics. Never used for control flow.
func (r *Resolver) SourceLabel(customPath string) string {
	resolved := r.Resolve(customPath)
	if resolved == nil {
		return SourceNone
	}
	return resolved.Source + ":" + resolved.Path
}
