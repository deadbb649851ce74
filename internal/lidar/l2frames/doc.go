// Package l2frames owns Layer 2 (Frames) of the LiDAR data model.
//
// Responsibilities: batching an unbounded stream of scans (Velodyne firings
// or Ouster columns, already converted to points) into one Frame per sensor
// revolution. Revolution boundaries are found by one of two policies chosen
// at construction: azimuth wraparound, or the sensor's frame and
// measurement counters.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2frames
