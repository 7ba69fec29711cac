package amqp

import (
	"encoding/json"
	"time"
)

// RefreshRequestMessage asks the worker to re-read the spreadsheet and
// rebuild the mirror. It carries no payload beyond its origin; the
// worker always fetches the full snapshot.
type RefreshRequestMessage struct {
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRefreshRequestMessage(requestedBy string) *RefreshRequestMessage {
	return &RefreshRequestMessage{
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

func (m *RefreshRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RefreshRequestMessageFromJSON(data []byte) (*RefreshRequestMessage, error) {
	var msg RefreshRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
