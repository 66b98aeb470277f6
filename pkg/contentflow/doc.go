// Package contentflow provides the publication workflow engine for
// hierarchical, multi-language content with pluggable persistence.
//
// It exposes a single Service interface that orchestrates the decision
// logic behind save, publish, send-to-publish, unpublish, move, copy, sort
// and recycle-bin operations: per-culture publish state, path-based
// permission authorization, and hierarchy invariants are reconciled into a
// structured outcome per request. Repositories (memory, Postgres) live
// under subpackages; HTTP transport, identity resolution and the content
// type schema service are external collaborators consumed through the
// interfaces in this package.
//
// The engine never owns long-lived storage. Nodes are loaded fresh per
// request, mutated in memory, and handed back to the repository, which is
// responsible for optimistic concurrency; a detected conflict surfaces as a
// cancelled outcome requiring client retry.
package contentflow
