// Package pipeline bridges the adaptation engine into a streaming
// client's request/response message flow.
package pipeline

// Message is one request or response travelling through the adaptation
// layer. The layer never inspects payloads beyond their size; it only
// reads manifest payloads for parsing and attaches the selected quality
// ID to outgoing segment requests.
type Message interface {
	// Payload returns the raw body carried by the message.
	Payload() []byte
	// BitLength returns the payload size in bits.
	BitLength() int64
	// SetQualityID attaches the selected quality level identifier.
	SetQualityID(id string)
}

// Relay forwards messages through the host pipeline: requests flow down
// toward the transport, responses flow up toward the player.
type Relay interface {
	SendDown(msg Message)
	SendUp(msg Message)
}

// ManifestParser extracts the ordered quality level identifiers from a
// raw manifest payload, ascending by quality.
type ManifestParser interface {
	QualityLevels(payload []byte) ([]string, error)
}
