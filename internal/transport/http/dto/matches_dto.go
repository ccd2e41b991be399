package dto

import "time"

type CounterpartResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Headline string `json:"headline,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

type LastMessageResponse struct {
	Content   string    `json:"content"`
	IsFromMe  bool      `json:"isFromMe"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

type MatchResponse struct {
	ID          int64                `json:"id"`
	JobID       int64                `json:"jobId"`
	Status      string               `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
	User        CounterpartResponse  `json:"user"`
	JobTitle    string               `json:"jobTitle"`
	CompanyName string               `json:"companyName"`
	LastMessage *LastMessageResponse `json:"lastMessage"`
	UnreadCount int                  `json:"unreadCount"`
}

type MatchesResponse struct {
	Matches []MatchResponse `json:"matches"`
}

type MessageResponse struct {
	ID          int64      `json:"id"`
	MatchID     int64      `json:"matchId"`
	SenderID    int64      `json:"senderId"`
	RecipientID int64      `json:"recipientId"`
	Content     string     `json:"content"`
	MessageType string     `json:"messageType"`
	IsRead      bool       `json:"isRead"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ConversationResponse struct {
	Match       MatchResponse     `json:"match"`
	Messages    []MessageResponse `json:"messages"`
	Suggestions []string          `json:"suggestions"`
}

type SendMessageRequest struct {
	Content     string `json:"content"`
	MessageType string `json:"messageType,omitempty"`
}

type SendMessageResponse struct {
	Message MessageResponse `json:"message"`
}
