// Package loop drives the agent through repeated decide, execute, commit
// cycles until the work runs out.
//
// Each iteration:
//   - re-reads the task state from disk and the working tree status from git
//   - runs the supervisor instead of the decision function when its commit
//     cadence comes due
//   - otherwise asks the Decider for an Action and executes it
//   - makes sure the iteration's changes are committed, pushes on cadence,
//     and checks the termination rules
//
// The Decider is a pure function of State. All side effects on tasks,
// including claiming, completing and releasing specs, belong to the loop.
package loop
