// Package firing turns decoded sensor packets into firings: groups of
// per-beam returns that share one timestamp and one azimuth range.
//
// Velodyne blocks are staggered: a 16-beam block holds two firing
// sequences and dual-return packets pair adjacent blocks. The last block
// (or pair) of a packet can only be interpolated once the first azimuth of
// the next packet is known, so it is copied into an explicit Carry that the
// caller threads into the next Extract call.
//
// Ouster columns already hold one return per beam at a single encoder
// position; FromColumn is an identity mapping onto ColumnFiring.
package firing
