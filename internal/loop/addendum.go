package loop

import "strings"

// ResumeAddendum is appended to the prompt when the working tree was dirty
// at the start of an iteration.
const ResumeAddendum = `## Uncommitted work

There are uncommitted changes in the working tree from a previous run that
did not finish. Inspect them with git status and git diff, finish the
in-progress work they belong to, and commit it before starting anything new.`

// WithResumeAddendum appends ResumeAddendum to prompt when dirty is set.
func WithResumeAddendum(prompt string, dirty bool) string {
	if !dirty {
		return prompt
	}
	prompt = strings.TrimRight(prompt, "\n")
	if prompt == "" {
		return ResumeAddendum + "\n"
	}
	return prompt + "\n\n" + ResumeAddendum + "\n"
}
