package enums

type NotificationType string

const (
	NotificationMatch         NotificationType = "match"
	NotificationMessage       NotificationType = "message"
	NotificationSystem        NotificationType = "system"
	NotificationSwipeInterest NotificationType = "swipe_interest"
)
