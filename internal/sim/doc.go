// Package sim owns the shockwave engine: the discrete-event simulation
// that turns a fundamental diagram plus a set of capacity perturbations
// into a finished set of interfaces, and the region decomposition that
// extracts closed, labelled state polygons from them.
//
// The engine is single-threaded and synchronous. All mutable state
// (event queue, interface arena, dedup indices) is owned by one Engine
// per run; a run executes to completion or fails with a fatal error.
// Readers that want to work concurrently must snapshot the finalized
// interface list after Run returns.
package sim
