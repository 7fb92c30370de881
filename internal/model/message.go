package model

import "time"

// MessageKind 消息类型
type MessageKind string

const (
	MessageChat        MessageKind = "chat"
	MessageNightResult MessageKind = "night_result"
	MessageSystem      MessageKind = "system"
)

// Message 房间消息，RecipientID 为空表示公开
type Message struct {
	ID          string      `json:"id"`
	Kind        MessageKind `json:"kind"`
	SenderID    string      `json:"senderId"`
	SenderName  string      `json:"senderName"`
	RecipientID string      `json:"recipientId,omitempty"`
	Text        string      `json:"text"`
	At          time.Time   `json:"at"`
}

// IsPublic 是否为公开消息
func (m *Message) IsPublic() bool {
	return m.RecipientID == ""
}

// VisibleTo 非说书人是否可见
func (m *Message) VisibleTo(userID string) bool {
	if m.IsPublic() {
		return true
	}
	return userID != "" && (m.SenderID == userID || m.RecipientID == userID)
}
