package entity

import (
	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationBookingCreated      NotificationType = "booking_created"
	NotificationBookingStatus       NotificationType = "booking_status_changed"
	NotificationBookingCancelled    NotificationType = "booking_cancelled"
	NotificationPaymentReceived     NotificationType = "payment_received"
	NotificationPaymentFailed       NotificationType = "payment_failed"
	NotificationRefundIssued        NotificationType = "refund_issued"
	NotificationRefundFailed        NotificationType = "refund_failed"
	NotificationReviewReceived      NotificationType = "review_received"
	NotificationSubscriptionActive  NotificationType = "subscription_activated"
	NotificationSubscriptionExpiry  NotificationType = "subscription_expiring"
	NotificationSubscriptionExpired NotificationType = "subscription_expired"
)

type Notification struct {
	BaseSimple
	UserID   uuid.UUID         `db:"user_id"`
	Type     NotificationType  `db:"type"`
	Title    string            `db:"title"`
	Message  string            `db:"message"`
	Link     *string           `db:"link"`
	Metadata map[string]string `db:"metadata"`
	IsRead   bool              `db:"is_read"`
}
