// Package agentic provides a high-level library API for the sandboxed
// preview and apply pipeline.
//
// This package is the primary integration point for external consumers such
// as assistant runtimes that generate code on a user's behalf. It wraps the
// internal packages into a clean, stable public API: generated content is
// staged into a per-session sandbox, reviewed against the live tree,
// approved per artifact, and only then applied atomically.
//
// # Concurrency Safety
//
// Operations are filesystem-based and follow these rules:
//
//   - Stage, Decide, and Review for DIFFERENT sessions are fully independent
//     and safe to use concurrently.
//
//   - Apply takes a workspace-wide lease lock; a second Apply fails fast
//     with ErrConcurrentApply instead of blocking.
//
//   - Multiple Client instances for the SAME workspace must NOT call Apply
//     concurrently; the lock enforces this.
//
// # Recommended Usage Pattern
//
//	client, err := agentic.OpenOrInit(workspaceRoot)
//	sess, _ := client.NewSession("assistant", "refactor parser")
//	client.Stage(sess.SessionID, "internal/parser/parse.go", content, "model")
//	reports, _ := client.Review(sess.SessionID)
//	// ... human inspects reports and the preview directory ...
//	client.Decide(sess.SessionID, "internal/parser/parse.go", agentic.Approve, "reviewer")
//	report, _ := client.Apply(ctx, "reviewer", sess.SessionID, agentic.ApplyOptions{})
package agentic
