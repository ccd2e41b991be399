package dto

import "time"

type NotificationResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ActionURL string     `json:"actionUrl,omitempty"`
	IsRead    bool       `json:"isRead"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	UnreadCount   int                    `json:"unreadCount"`
}

type MarkNotificationsRequest struct {
	NotificationIDs []string `json:"notificationIds,omitempty"`
	MarkAll         bool     `json:"markAll,omitempty"`
}

type DeleteNotificationsRequest struct {
	NotificationIDs []string `json:"notificationIds,omitempty"`
	DeleteAll       bool     `json:"deleteAll,omitempty"`
}

type AffectedResponse struct {
	Success  bool  `json:"success"`
	Affected int64 `json:"affected"`
}
