package launcher

import "regexp"

// Context carries the per-invocation values a command template can draw
// on: the prompt text of the current menu step and whether the step is
// secret entry.
type Context struct {
	Prompt   string
	Password bool
}

var tokenPattern = regexp.MustCompile(`\{(\w+)(?::([^}]*))?\}`)

// Resolve substitutes the recognized placeholder tokens of a custom
// launcher command:
//
//	{prompt}                the prompt text with a trailing colon
//	{placeholder}           the prompt text without a colon
//	{password_flag:FLAG}    FLAG during secret entry, empty otherwise
//
// Tokens are optional and order-insensitive. Anything unrecognized passes
// through literally so a malformed template fails visibly at invocation
// instead of being silently corrupted. Substitution happens before the
// command string is split; no shell evaluation is added.
func Resolve(template string, ctx Context) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		groups := tokenPattern.FindStringSubmatch(token)
		name, fallback := groups[1], groups[2]
		hasFallback := fallback != "" || len(token) > len(name)+2

		switch {
		case name == "prompt" && !hasFallback:
			return ctx.Prompt + ":"
		case name == "placeholder" && !hasFallback:
			return ctx.Prompt
		case name == "password_flag" && hasFallback:
			if ctx.Password {
				return fallback
			}
			return ""
		}

		return token
	})
}
