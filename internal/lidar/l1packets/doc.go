// Package l1packets owns Layer 1 (Packets) of the LiDAR data model.
//
// Responsibilities: raw UDP packet ingestion, PCAP replay, and bit-exact
// decoding of sensor wire formats into read-only typed views. The
// velodyne/ and ouster/ subpackages hold one decoder per hardware family;
// network/ holds the packet sources. This layer produces packet views
// consumed by the firing extractor.
//
// Dependency rule: L1 has no inward dependencies on higher layers.
package l1packets
