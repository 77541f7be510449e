// Package redact strips known secret shapes out of text before it is
// persisted to an event log or injected into a hook's additional context.
package redact

import "regexp"

type Applied struct {
	Names []string
}

var builtins = []struct {
	name string
	re   *regexp.Regexp
	repl string
}{
	{"github_token", regexp.MustCompile(`\bgh[po]_[A-Za-z0-9]{10,}\b`), "[REDACTED:GITHUB_TOKEN]"},
	{"github_token", regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{10,}\b`), "[REDACTED:GITHUB_TOKEN]"},
	{"openai_key", regexp.MustCompile(`\bsk-[A-Za-z0-9]{10,}\b`), "[REDACTED:OPENAI_KEY]"},
	{"slack_token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`), "[REDACTED:SLACK_TOKEN]"},
	{"aws_access_key_id", regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`), "[REDACTED:AWS_ACCESS_KEY_ID]"},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`), "[REDACTED:JWT]"},
	{"bearer_token", regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._~+/=-]{10,}`), "Bearer [REDACTED:BEARER_TOKEN]"},
	{"private_key", regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`), "[REDACTED:PRIVATE_KEY]"},
}

// Text applies every built-in secret pattern to s and reports which ones
// fired.
func Text(s string) (string, Applied) {
	applied := Applied{}
	out := s

	for _, b := range builtins {
		if !b.re.MatchString(out) {
			continue
		}
		out = b.re.ReplaceAllString(out, b.repl)
		applied.Names = appendOnce(applied.Names, b.name)
	}

	return out, applied
}

// Rule is a compiled extra redaction rule sourced from project or global
// configuration (internal/config.RedactionRuleV1).
type Rule struct {
	ID          string
	Regex       *regexp.Regexp
	Replacement string
}

// ApplyExtra runs rules, in order, over s after the built-in patterns
// have already run. A bad Regex on any one rule never blocks the rest.
func ApplyExtra(s string, rules []Rule) (string, Applied) {
	applied := Applied{}
	out := s
	for _, r := range rules {
		if r.Regex == nil {
			continue
		}
		repl := r.Replacement
		if repl == "" {
			repl = "[REDACTED:" + r.ID + "]"
		}
		if r.Regex.MatchString(out) {
			out = r.Regex.ReplaceAllString(out, repl)
			applied.Names = appendOnce(applied.Names, r.ID)
		}
	}
	return out, applied
}

func appendOnce(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}
