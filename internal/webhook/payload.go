package webhook

import (
	"errors"

	"messenger_orders/internal/orders"
)

// ErrMalformedPayload is returned when the body lacks the expected structure.
var ErrMalformedPayload = errors.New("malformed payload")

// Payload is the body of a POST delivery.
type Payload struct {
	Object string  `json:"object,omitempty"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string  `json:"id,omitempty"`
	Time      int64   `json:"time,omitempty"`
	Messaging []Event `json:"messaging"`
}

// Event is one messaging event. Exactly one of Message or Postback is usually set.
type Event struct {
	Sender    *Sender   `json:"sender"`
	Recipient *Sender   `json:"recipient,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
}

type Sender struct {
	ID string `json:"id"`
}

type Message struct {
	MID  string `json:"mid,omitempty"`
	Text string `json:"text"`
}

type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"

	orderNotFoundMessage = "Order details not found"
)

// Response is the JSON body returned for a message event.
type Response struct {
	Status       string         `json:"status"`
	OrderDetails *orders.Record `json:"order_details,omitempty"`
	Message      string         `json:"message,omitempty"`
}
