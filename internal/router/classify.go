package router

import "strings"

// Target says where a request for a model is served.
type Target string

const (
	TargetLocal  Target = "local"
	TargetRemote Target = "remote"
)

// Decision is the routing verdict for one model identifier. Classification
// is pure: no side effects, deterministic given the Rules.
type Decision struct {
	Target Target
	// Model is the identifier to use against the chosen backend, with any
	// explicit provider prefix stripped.
	Model string
	// LocalOnly means no meaningful remote equivalent exists: a local
	// failure is fatal, never a silent remote fallback.
	LocalOnly bool
}

// Rules configures classification.
type Rules struct {
	// AutoDeploy gates local serving of open-weight models. Off means
	// everything routes remote.
	AutoDeploy bool
	// LocalPatterns extends the built-in open-weight substrings. Unlike
	// the built-ins these are not treated as local-only: a configured
	// model may still have a remote equivalent to fall back to.
	LocalPatterns []string
	// RemotePatterns extends the built-in closed-source substrings.
	RemotePatterns []string
}

// providerPrefixes route remote unconditionally; the prefix is stripped for
// the provider call.
var providerPrefixes = []string{"openai/", "anthropic/", "remote/"}

// closedSubstrings mark proprietary models that only exist behind an API.
var closedSubstrings = []string{"gpt-", "claude", "gemini"}

// openSubstrings mark open-weight families that can be served locally.
var openSubstrings = []string{
	"llama", "qwen", "mistral", "mixtral", "deepseek", "gemma", "phi-", "falcon",
}

// Classify decides local vs remote for a model identifier. Decision order:
// explicit provider prefix wins; then closed-source patterns; then
// open-weight patterns (local when auto-deploy is on); default remote.
func Classify(model string, rules Rules) Decision {
	name := strings.TrimSpace(model)
	lower := strings.ToLower(name)

	for _, p := range providerPrefixes {
		if rest, ok := strings.CutPrefix(lower, p); ok && rest != "" {
			return Decision{Target: TargetRemote, Model: name[len(p):]}
		}
	}

	for _, s := range closedSubstrings {
		if strings.Contains(lower, s) {
			return Decision{Target: TargetRemote, Model: name}
		}
	}
	if isReasoningSeries(lower) {
		return Decision{Target: TargetRemote, Model: name}
	}
	for _, s := range rules.RemotePatterns {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return Decision{Target: TargetRemote, Model: name}
		}
	}

	if localOnly, ok := isOpenWeight(lower, rules.LocalPatterns); ok {
		if rules.AutoDeploy {
			return Decision{Target: TargetLocal, Model: name, LocalOnly: localOnly}
		}
		return Decision{Target: TargetRemote, Model: name}
	}

	return Decision{Target: TargetRemote, Model: name}
}

// isOpenWeight reports whether the identifier names an open-weight model
// and whether it is local-only (no remote equivalent).
func isOpenWeight(lower string, extra []string) (localOnly, ok bool) {
	for _, s := range openSubstrings {
		if strings.Contains(lower, s) {
			return true, true
		}
	}
	// Org-prefixed hub identifiers default to open weight.
	if strings.Count(lower, "/") == 1 {
		return true, true
	}
	for _, s := range extra {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return false, true
		}
	}
	return false, false
}

// isReasoningSeries matches the o1/o3/o4 naming scheme, which has no
// separator a substring check could anchor on.
func isReasoningSeries(lower string) bool {
	for _, p := range []string{"o1", "o3", "o4"} {
		if lower == p || strings.HasPrefix(lower, p+"-") {
			return true
		}
	}
	return false
}
