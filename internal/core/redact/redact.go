// Package redact scrubs credential material and privilege-escalation
// chatter out of command output before it reaches logs or progress events.
// This is part of the Functional Core - all functions are pure with no I/O.
package redact

import (
	"regexp"
	"strings"
)

// Mask replaces scrubbed credential material.
const Mask = "[redacted]"

// minScrubLen guards against mangling output when a degenerate secret
// (one or two characters) would match all over the text.
const minScrubLen = 4

// =============================================================================
// Scrubber
// =============================================================================

// Scrubber removes registered secrets from text. It keeps references to the
// live capsule material rather than copies, so once the owning capsule is
// zeroized no readable secret lingers here either.
type Scrubber struct {
	secrets [][]byte
}

// NewScrubber creates a scrubber over the given secrets.
func NewScrubber(secrets ...[]byte) *Scrubber {
	s := &Scrubber{}
	for _, sec := range secrets {
		s.Add(sec)
	}
	return s
}

// Add registers another secret to scrub. Short material is ignored.
func (s *Scrubber) Add(secret []byte) {
	if len(secret) < minScrubLen {
		return
	}
	s.secrets = append(s.secrets, secret)
}

// Scrub replaces every occurrence of a registered secret with the mask.
func (s *Scrubber) Scrub(text string) string {
	if s == nil {
		return text
	}
	for _, sec := range s.secrets {
		needle := string(sec)
		if needle == "" || strings.Trim(needle, "\x00") == "" {
			continue
		}
		text = strings.ReplaceAll(text, needle, Mask)
	}
	return text
}

// =============================================================================
// Escalation Prompt Noise
// =============================================================================

// sudoNoisePatterns match the password-prompt chatter sudo writes around
// the real command output. The elevated runner suppresses the prompt with
// an empty prompt string, but targets with customized sudoers output still
// leak these lines.
var sudoNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\[sudo\].*password.*$`),
	regexp.MustCompile(`(?i)^password for \S+:\s*$`),
	regexp.MustCompile(`(?i)^password:\s*$`),
	regexp.MustCompile(`(?i)^sorry, try again\.?\s*$`),
}

// inlinePromptPattern catches a prompt glued to the front of the first
// output line when sudo writes it without a trailing newline.
var inlinePromptPattern = regexp.MustCompile(`(?i)^(\[sudo\] )?password for [^:]+:\s*`)

// StripSudoNoise removes escalation-prompt lines from command output so
// callers see command output, not authentication chatter.
func StripSudoNoise(output string) string {
	if output == "" {
		return output
	}

	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isSudoNoise(line) {
			continue
		}
		kept = append(kept, inlinePromptPattern.ReplaceAllString(line, ""))
	}
	return strings.Join(kept, "\n")
}

func isSudoNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range sudoNoisePatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// =============================================================================
// Escalation Failure Detection
// =============================================================================

// escalationDeniedMarkers are the sudo failure modes that mean the
// credential or the account is unusable for escalation, as opposed to the
// escalated command itself failing.
var escalationDeniedMarkers = []string{
	"incorrect password attempt",
	"sorry, try again",
	"no password was provided",
	"is not in the sudoers file",
	"not allowed to execute",
	"authentication failure",
	"a password is required",
}

// IsEscalationDenied reports whether command output indicates sudo
// rejected the escalation rather than ran the command.
func IsEscalationDenied(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range escalationDeniedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
