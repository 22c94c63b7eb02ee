package provider

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a repository URL for storage and lookup:
// scheme and host are lower-cased, and query, fragment, trailing slashes and
// a trailing ".git" are removed. Inputs that do not parse are only trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return trimRepoSuffix(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	u.Path = trimRepoSuffix(u.Path)
	u.RawPath = ""
	return u.String()
}

func trimRepoSuffix(s string) string {
	s = strings.TrimRight(s, "/")
	s = strings.TrimSuffix(s, ".git")
	return strings.TrimRight(s, "/")
}

// HasPrefixURL reports whether repositoryURL lives under base, for example
// "https://github.com/acme/widgets" under "https://github.com".
func HasPrefixURL(repositoryURL, base string) bool {
	base = strings.TrimRight(base, "/")
	return base != "" && strings.HasPrefix(repositoryURL, base+"/")
}

// RepoPath returns the path of repositoryURL below base without leading or
// trailing slashes and without a ".git" suffix.
func RepoPath(repositoryURL, base string) string {
	p := strings.TrimPrefix(repositoryURL, strings.TrimRight(base, "/")+"/")
	return strings.Trim(trimRepoSuffix(p), "/")
}
