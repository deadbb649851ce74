// Package network supplies raw LiDAR payloads to the pipeline: UDP
// sockets, PCAP/PCAPNG captures (optionally gzip-compressed) and in-memory
// packet lists. Every source implements ReadPacket() ([]byte, error) and
// returns io.EOF once exhausted.
package network
