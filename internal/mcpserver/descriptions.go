package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeAnalyzeDeadCode() string {
	return `Finds top-level JavaScript and TypeScript symbols (functions, classes, variables, default exports) that no entry point can reach, and scores how safe each one is to delete.

USE WHEN:
- Cleaning up a JS/TS codebase before a refactor
- Finding code orphaned by a removed feature
- Checking whether a barrel file still re-exports anything that is used

INTERPRETING RESULTS:
- Confidence 0-100: higher means safer to delete
- 100: private, unreferenced, not touched recently
- 80 and above: very likely dead, review and remove
- 50-79: probably dead, but exported or referenced only by other dead code
- Below 50: name or access pattern suggests runtime lookup, verify by hand
- Reasons explain each deduction: exported, transitively-dead, dynamic-pattern,
  dynamic-access, recently-modified

ENTRY POINTS:
- Conventional files (index, main, app, server, cli at the root or in src/, anything under bin/)
- Test files, package.json main/module/bin/exports, configured entry patterns
- In library mode every public export of the package is an entry point

METRICS RETURNED:
- summary: totalSymbols, deadSymbols, deadCodeRatio
- files: path and deadSymbols (name, kind, line, confidence, reasons)

Note: type-only usage and string-built imports are not tracked.`
}

func describeClearCache() string {
	return `Drops the cached per-file extraction results of a project so the next analysis re-parses every file.

USE WHEN:
- Results look stale after a parser upgrade
- The cache directory was copied between machines`
}
