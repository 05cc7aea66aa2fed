package models

// Message is one chat message as stored inside a batch.
type Message struct {
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Delivery is the fan-out payload pushed to one subscriber. TempID is the
// sender-supplied correlation id and is set only on deliveries going to the
// author's own connections, so the originating client can reconcile its
// optimistic local echo.
type Delivery struct {
	Message
	TempID string `json:"tempID,omitempty"`
}
