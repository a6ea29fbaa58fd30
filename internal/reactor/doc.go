// Package reactor wraps plain hierarchical data (maps, sequences, scalars) in
// reactive stores.
//
// Reads through a Store attribute themselves to the active reader of the
// store's track.Tracker and register it as a dependent of the key that was
// read. Writes and deletes that change a value notify every live dependent of
// that key: the dependent is re-resolved through the configured Resolver, its
// direct value sink is updated when its name matches the key, and its render
// hook runs unless it is already rendering.
//
// There is no subscribe call and no unsubscribe: a dependent that is no longer
// connected to live output is skipped at notification time.
package reactor
