package secrets

// DefaultRules covers credentials a CI build can plausibly print: GitHub
// tokens, registry keys in URLs, cloud keys and private key blocks.
func DefaultRules() []Rule {
	return []Rule{
		// GitHub prefixes are self-identifying.
		{ID: "github-token", Pattern: `gh[pousr]_[A-Za-z0-9]{36}`},
		{ID: "github-fine-grained", Pattern: `github_pat_[A-Za-z0-9_]{22,}`},

		// Registry and similar services take the key as a query parameter.
		{ID: "url-key", Pattern: `(?i)[?&](?:key|token|api_key|access_token)=[^&\s"')]+`},

		{ID: "bearer-token", Pattern: `(?i)bearer\s+[A-Za-z0-9_\-\.=]{20,}`, Keywords: []string{"bearer"}},
		{ID: "basic-auth-url", Pattern: `(?i)https?://[^/\s:@]+:[^/\s@]+@[^\s]+`},

		{ID: "aws-access-key-id", Pattern: `(?:A3T[A-Z0-9]|AKIA|ASIA)[A-Z0-9]{16}`},
		{
			ID:       "aws-secret-access-key",
			Pattern:  `(?i)(?:aws_secret_access_key|secret_access_key)\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`,
			Keywords: []string{"secret"},
		},
		{ID: "nuget-api-key", Pattern: `oy2[a-z0-9]{43}`},
		{ID: "discord-webhook", Pattern: `https://(?:ptb\.|canary\.)?discord(?:app)?\.com/api/webhooks/\d+/[A-Za-z0-9_\-]+`},

		{
			ID:       "generic-secret",
			Pattern:  `(?i)(?:password|passwd|secret|api[_-]?key)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`,
			Keywords: []string{"password", "secret", "key"},
		},
		{ID: "private-key", Pattern: `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`},
	}
}
