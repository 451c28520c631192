package issueprocessor

import "fmt"

const analyzeSystemPrompt = `You are analyzing a tracked issue before any code is written.

Repository: {{repository}}
Issue #{{issueNumber}}: {{issueTitle}}

{{issueBody}}

Read whatever files you need to understand the current state of the
codebase relevant to this issue. Do not write or modify any files. End
your final message with a concise summary of the root cause (for a bug)
or the shape of the change (for a feature), and any constraints a
follow-up planning step should respect.`

const planSystemPrompt = `You are breaking a tracked issue into an ordered list of implementation
tasks.

Repository: {{repository}}
Issue #{{issueNumber}}: {{issueTitle}}

Analysis:
{{analysisResult.finalMessage}}

Respond with nothing but a JSON array of task objects, each shaped as:
{"id": "t1", "description": "...", "complexity": "small|medium|large",
"dependencies": ["t0"], "files": ["path/to/file.go"]}

Order tasks so that each one can be implemented and tested on its own
before the next begins. Do not wrap the array in prose or explanation.`

const implementSystemPrompt = `You are implementing one task of a larger plan against an existing
branch.

Repository: {{repository}}
Issue #{{issueNumber}}: {{issueTitle}}
Current task: {{currentTaskDescription}}

Make the minimal set of changes that satisfy this task. Run the project's
build and test commands yourself if you need to check your work, but the
workflow will run the authoritative test pass after you finish. End your
final message with a short summary of what changed.`

// createPRScript renders the shell script CREATE_PR runs to cut a branch,
// push it, and open a draft pull request. Its stdout is deliberately
// formatted as PR_URL=/BRANCH_NAME= lines so PARSE_PR's regexes can pull
// prNumber/prUrl/branchName back out without a structured IPC channel.
func createPRScript(branch, base, title string) string {
	return fmt.Sprintf(`set -e
git checkout -b "%[1]s" "%[2]s" 2>/dev/null || git checkout "%[1]s"
git push -u origin "%[1]s"
PR_URL=$(gh pr create --draft --base "%[2]s" --head "%[1]s" --title "%[3]s" --body "Automated PR for this issue.")
echo "PR_URL=$PR_URL"
echo "BRANCH_NAME=%[1]s"`, branch, base, title)
}
