// Package sim provides the possession-by-possession basketball game engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - player.go / rating.go: ratings, live stats, fatigue and injury adjustment
//   - simulator.go: the game loop (QuarterStart → InPossession → QuarterEnd → GameEnd)
//   - nodes.go / resolve.go: the behavior-tree leaves and outcome resolution
//   - substitution.go / injury.go: periodic rotation and injury checks
//
// # Architecture
//
// A Simulator owns one game: its state, rosters and a PartitionedRNG
// seeded from SimConfig.Seed, so a game is fully reproducible. Decisions
// come from a behavior tree (sim/bt) that is built once and shared by all
// games. Step advances the loop by one transition; Run is the batch
// profile and sim/live wraps Step in a paced, wall-clock driven runner.
//
// Sub-packages:
//   - sim/bt/: generic behavior-tree engine and YAML tree specs
//   - sim/trace/: possession and play-by-play records
//   - sim/live/: paced runner and websocket gateway
//   - sim/league/: YAML league files
//   - sim/store/: in-memory and SQLite implementations of Store
//   - sim/season/: season driver and batch sweeps
//   - sim/telemetry/: Prometheus metrics
package sim
