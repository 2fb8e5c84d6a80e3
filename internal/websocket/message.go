package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewWeatherUpdateMessage builds a pushed snapshot refresh for a city.
func NewWeatherUpdateMessage(city string, snapshot json.RawMessage) []byte {
	return marshalMessage(Message{
		Action: "weather_update",
		Payload: map[string]interface{}{
			"city":    city,
			"weather": snapshot,
		},
	})
}

// NewNoticeMessage builds a service-wide announcement for every connected
// client, delivered through the hub's global broadcast.
func NewNoticeMessage(text string) []byte {
	return marshalMessage(Message{
		Action:  "server_notice",
		Payload: map[string]string{"message": text},
	})
}

// NewErrorMessage builds an error notification for a client.
func NewErrorMessage(text string) []byte {
	return marshalMessage(Message{
		Action:  "error",
		Payload: map[string]string{"message": text},
	})
}

func marshalMessage(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"action":"error"}`)
	}
	return data
}
