package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeStartSession() string {
	return `Runs a cleanup session: scans the workspace for TODO comments, matches each against the safe pattern table and executes the actions that pass the safety gate.

USE WHEN:
- Resolving a backlog of mechanical TODOs (unused imports, console logs, formatting)
- Previewing what sweep would change (set dry_run)
- Cleaning only part of a repository (set file_patterns)

INTERPRETING RESULTS:
- status completed: every TODO was handled or skipped
- status paused: the action cap or a rate limit stopped the loop; resume later
- status failed: a FATAL error aborted the session; files are rolled back
- actions_failed > 0: the transform produced invalid code and was rolled back
- pending_approval lists actions held because their confidence is below the auto-approve threshold
- errors carry type (SAFETY, VALIDATION, RATE_LIMIT, ...) and severity

METRICS RETURNED:
- session_id, status, branch (when git integration is on)
- actions_executed, actions_completed, actions_failed, actions_skipped
- errors, summary, duration_ms`
}

func describeSessionStatus() string {
	return `Shows one session in full, or lists every known session when session_id is empty.

USE WHEN:
- Checking on a session started earlier or by another client
- Reviewing which actions were applied and which were rejected
- Finding action IDs to pass to approve_action

INTERPRETING RESULTS:
- running true: the session is still being driven by this server
- error_summary groups errors by type and severity with recommended next steps
- mean_rejected_confidence well below the safety threshold means the TODOs are not mechanical
- Each action carries its before/after checksums and backup path

METRICS RETURNED:
- Single session: session, error_summary, running
- Listing: id, status, workspace, actions, errors, started`
}

func describeApproveAction() string {
	return `Approves and executes an action that was held for approval.

USE WHEN:
- A session reports pending_approval entries
- You reviewed the proposed change and want it applied

INTERPRETING RESULTS:
- status completed: the change was written and validated
- status failed: validation rejected the result and the file was restored
- An error means the action is not awaiting approval or the session is unknown

METRICS RETURNED:
- The updated action: id, type, file_path, status, changes, error`
}

func describeListTodos() string {
	return `Lists TODO, FIXME, HACK, XXX and NOTE comments in a workspace without changing anything.

USE WHEN:
- Surveying how much work a session would have
- Finding TODOs in specific files before matching them
- Auditing debt markers before a release

INTERPRETING RESULTS:
- confidence reflects how actionable the marker is (FIXME and TODO with a description rank highest)
- id is a stable fingerprint used to track the TODO across sessions
- context holds the surrounding lines

METRICS RETURNED:
- items: id, file_path, line, column, content, type, confidence, context
- summary: total_items, files_scanned, files_with_todos, by_type, by_file`
}

func describeMatchTodo() string {
	return `Matches a TODO comment against the safe pattern table and reports what the safety gate would decide.

USE WHEN:
- Explaining why a session skipped or held a TODO
- Checking whether rewording a TODO would make it actionable
- Exploring which patterns exist

INTERPRETING RESULTS:
- decision auto_execute: confidence reaches the auto-approve threshold and the pattern allows auto approval
- decision require_approval: the action would wait for approve_action
- decision reject: confidence is below the safety threshold or the pattern is disabled (see reason)
- generic-review always matches at low confidence and is never executed

METRICS RETURNED:
- decision, best, reason
- matches: pattern_id, pattern_name, confidence, action, extracted, risk, auto_approve`
}

func describeFindUnusedImports() string {
	return `Finds import bindings that are never referenced in a JavaScript or TypeScript file.

USE WHEN:
- Checking a file before running remove_unused_imports
- Auditing bundle size contributors

INTERPRETING RESULTS:
- Side-effect imports (import "x") are never reported
- Type-only references count as usage
- A statement is removed whole only when every binding in it is unused

METRICS RETURNED:
- path, total_bindings, side_effect_imports
- unused: name, kind, source, line, column, scope`
}

func describeRemoveUnusedImports() string {
	return `Removes unused import bindings from a file after validating the result parses.

USE WHEN:
- Cleaning a single file outside a session
- Previewing the removal diff (set dry_run)

INTERPRETING RESULTS:
- written false with no removed entries: nothing to do
- backup holds the previous content when backups are enabled
- An error means the result failed syntax validation and the file is untouched

METRICS RETURNED:
- path, removed, written, backup, diff`
}

func describeAnalyzeUnusedVariables() string {
	return `Finds variables, parameters and destructured bindings that are declared but never read.

USE WHEN:
- Reviewing a file for dead locals
- Deciding what a remove-unused-variables action would touch

INTERPRETING RESULTS:
- safe_to_remove: locals whose removal cannot change behavior
- requires_review: parameters, exports and bindings with side-effecting initializers
- Names starting with _ are treated as intentionally unused

METRICS RETURNED:
- path, total_variables
- unused_variables, safe_to_remove, requires_review: name, line, column, kind, scope`
}

func describeFindStubs() string {
	return `Finds functions whose body is empty, only throws "not implemented", or only returns a placeholder.

USE WHEN:
- Locating scaffolding left behind by generators
- Picking targets for implement_stub

INTERPRETING RESULTS:
- reason explains why the body counts as a stub
- class_name is set for methods
- signature is the declaration as written

METRICS RETURNED:
- name, kind, line, end_line, column, params, return_type, is_async, reason, class_name, signature`
}

func describeImplementStub() string {
	return `Synthesizes a body for a stub function from its name, signature and surrounding class, and optionally writes it.

USE WHEN:
- Filling in getters, setters, validators and formatters that follow obvious conventions
- Previewing a suggested body before editing by hand

INTERPRETING RESULTS:
- purpose.category is the inferred intent (getter, setter, validator, calculator, ...)
- suggestion.confidence below 0.5 means the body is a placeholder, review it
- conservative strategy refuses when no suggestion reaches 0.7
- written true means the file was updated after syntax validation

METRICS RETURNED:
- stub, purpose, suggestion, suggestions, diff, written, backup`
}
