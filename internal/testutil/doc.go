// Package testutil provides shared test utilities for ralph.
//
// # Fixtures
//
// The fixtures.go file provides sample data:
//
//   - SampleChecklist, SampleSpec - markdown documents for task readers
//   - ToolStartEvent, AssistantEndEvent, AgentEndEvent - agent event stream lines
//   - EventStream(lines...) - joins event lines into newline-delimited output
//
// # Environment Helpers
//
// The env.go file provides test environment setup:
//
//   - SetupTestRepo(t) - creates a git repository with one commit
//   - CommitFile(t, dir, path, content) - writes a file and commits it
//   - WriteTestFile(t, base, path, content) - writes a file in test dir
//   - WriteFakeAgent(t, script) - writes an executable shell script agent
//   - FindProjectRoot(t) - finds the project root directory
//
// # Assertions
//
// The assertions.go file provides repository assertions:
//
//   - AssertCommitCount(t, dir, n) - counts commits reachable from HEAD
//   - AssertClean(t, dir), AssertDirty(t, dir) - working tree state
//   - AssertHeadMessage(t, dir, msg) - last commit message
//   - AssertFileContent(t, path, content) - file contents
//
// # Usage
//
//	func TestSomething(t *testing.T) {
//	    dir := testutil.SetupTestRepo(t)
//	    testutil.WriteTestFile(t, dir, "TODO.md", []byte(testutil.SampleChecklist))
//	    // ... run test ...
//	    testutil.AssertCommitCount(t, dir, 2)
//	}
package testutil
