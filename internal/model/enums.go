package model

type UserRole string

const (
	RoleClient UserRole = "client"
	RoleReader UserRole = "reader"
	RoleAdmin  UserRole = "admin"
)

type SessionType string

const (
	SessionTypeChat  SessionType = "chat"
	SessionTypeCall  SessionType = "call"
	SessionTypeVideo SessionType = "video"
)

type SessionStatus string

const (
	SessionStatusScheduled    SessionStatus = "scheduled"
	SessionStatusInProgress   SessionStatus = "in_progress"
	SessionStatusCompleted    SessionStatus = "completed"
	SessionStatusCancelled    SessionStatus = "cancelled"
	SessionStatusNoShow       SessionStatus = "no_show"
	SessionStatusDisconnected SessionStatus = "disconnected"
)

type TransactionType string

const (
	TransactionTypeSessionCharge TransactionType = "session_charge"
	TransactionTypePayout        TransactionType = "payout"
	TransactionTypeRefund        TransactionType = "refund"
	TransactionTypePurchase      TransactionType = "purchase"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type NotificationType string

const (
	NotificationTypeSessionReminder NotificationType = "session_reminder"
	NotificationTypeSessionStarted  NotificationType = "session_started"
	NotificationTypeSessionEnded    NotificationType = "session_ended"
	NotificationTypeSessionNoShow   NotificationType = "session_no_show"
	NotificationTypePayment         NotificationType = "payment"
	NotificationTypeNewReview       NotificationType = "new_review"
	NotificationTypeSystem          NotificationType = "system"
)

type ChatMessageType string

const (
	ChatMessageTypeText  ChatMessageType = "text"
	ChatMessageTypeImage ChatMessageType = "image"
	ChatMessageTypeAudio ChatMessageType = "audio"
)
