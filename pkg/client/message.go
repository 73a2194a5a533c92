// Package client provides a synchronous HTTP streaming session that
// drives the adaptation pipeline against a DASH origin.
package client

type messageKind int

const (
	manifestRequest messageKind = iota
	manifestResponse
	segmentRequest
	segmentResponse
)

// message is the request/response unit relayed through the adaptation
// layer on behalf of this client.
type message struct {
	kind      messageKind
	seq       int
	payload   []byte
	qualityID string
}

func (m *message) Payload() []byte {
	return m.payload
}

func (m *message) BitLength() int64 {
	return int64(len(m.payload)) * 8
}

func (m *message) SetQualityID(id string) {
	m.qualityID = id
}
