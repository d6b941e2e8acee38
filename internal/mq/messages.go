package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobSubmit     MessageType = "job.submit"
	MessageTypeWorkStatus    MessageType = "work.status"
	MessageTypeWorkData      MessageType = "work.data"
	MessageTypeWorkWarning   MessageType = "work.warning"
	MessageTypeWorkException MessageType = "work.exception"
	MessageTypeWorkComplete  MessageType = "work.complete"
	MessageTypeWorkFail      MessageType = "work.fail"
)

// Message — JSON-конверт любого сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// JobSubmitPayload — payload задания.
type JobSubmitPayload struct {
	Handle   string `json:"handle"`
	Function string `json:"function"`
	Unique   string `json:"unique,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// WorkResultPayload — payload всех сообщений work.*.
type WorkResultPayload struct {
	Handle   string `json:"handle"`
	Function string `json:"function"`
	Unique   string `json:"unique,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Data     []byte `json:"data,omitempty"`

	// Numerator/Denominator заполняются только для work.status.
	Numerator   int `json:"numerator,omitempty"`
	Denominator int `json:"denominator,omitempty"`
}

// DecodeMessage разбирает тело AMQP-сообщения.
func DecodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	return &msg, nil
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload может быть уже распарсен как map или быть raw json
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
