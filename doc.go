// Package storyforge routes multi-media generation requests (narration
// audio, illustrations) across multiple capability-equivalent providers.
//
// The root package holds the provider router and shared types. Routing
// strategies live in the strategy subpackage, budget tracking in ledger,
// and the deadline-budgeted generation pipeline in orchestrator.
package storyforge
