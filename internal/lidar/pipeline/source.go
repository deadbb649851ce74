package pipeline

// Source supplies raw packet payloads in arrival order. ReadPacket returns
// io.EOF once the stream is exhausted. The returned slice may be reused by
// the next call.
type Source interface {
	ReadPacket() ([]byte, error)
}
