package models

import (
	"time"
)

// Intent values assigned by the classifier.
const (
	IntentEarlyCheckin = "early_checkin"
	IntentLateCheckout = "late_checkout"
	IntentOther        = "other"
)

// Request lifecycle statuses.
const (
	StatusAwaitingFollowup      = "awaiting_followup"
	StatusPendingAcknowledgment = "pending_acknowledgment"
	StatusPendingReply          = "pending_reply"
)

// Draft steps.
const (
	StepFollowup       = "followup"
	StepAcknowledgment = "acknowledgment"
	StepCleanerQuery   = "cleaner_query"
	StepGuestReply     = "guest_reply"
)

// Draft verdicts.
const (
	VerdictPending = "pending"
	VerdictOK      = "ok"
	VerdictNOK     = "nok"
)

// ProcessedRequest tracks one guest request per (reservation, intent) pair.
// The unique composite index is the dedup guarantee: a second request for
// the same pair is rejected by the database, never overwritten.
type ProcessedRequest struct {
	ID            uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	ReservationID int64     `json:"reservation_id" gorm:"not null;uniqueIndex:idx_reservation_intent"`
	Intent        string    `json:"intent" gorm:"type:varchar(32);not null;uniqueIndex:idx_reservation_intent"`
	RequestID     string    `json:"request_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	Status        string    `json:"status" gorm:"type:varchar(32);not null"`
	GuestMessage  string    `json:"guest_message" gorm:"type:text;not null"`
	GuestName     string    `json:"guest_name" gorm:"type:varchar(255)"`
	PropertyName  string    `json:"property_name" gorm:"type:varchar(255)"`
	OriginalTime  string    `json:"original_time" gorm:"type:varchar(8)"`
	RequestedTime string    `json:"requested_time" gorm:"type:varchar(8)"`
	RelevantDate  string    `json:"relevant_date" gorm:"type:varchar(16)"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for ProcessedRequest
func (ProcessedRequest) TableName() string {
	return "requests"
}

// Draft is a proposed outbound message awaiting the owner's review.
// Created by the pipeline, mutated only by the review action.
type Draft struct {
	ID                uint       `json:"draft_id" gorm:"primaryKey;autoIncrement"`
	RequestID         string     `json:"request_id" gorm:"type:varchar(64);not null;index"`
	ReservationID     int64      `json:"reservation_id" gorm:"not null;index"`
	Intent            string     `json:"intent" gorm:"type:varchar(32);not null"`
	Step              string     `json:"step" gorm:"type:varchar(32);not null"`
	Body              string     `json:"body" gorm:"type:text;not null"`
	Verdict           string     `json:"verdict" gorm:"type:varchar(16);not null;default:pending;index"`
	ActualMessageSent *string    `json:"actual_message_sent,omitempty" gorm:"type:text"`
	OwnerComment      *string    `json:"owner_comment,omitempty" gorm:"type:text"`
	CreatedAt         time.Time  `json:"created_at"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
}

// TableName specifies the table name for Draft
func (Draft) TableName() string {
	return "drafts"
}

// SeenMessage marks an inbound message id as classified. Write-once: its
// existence means the message must never be classified again.
type SeenMessage struct {
	ID            uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	MessageID     int64     `json:"message_id" gorm:"not null;uniqueIndex"`
	ReservationID int64     `json:"reservation_id" gorm:"not null;index"`
	SeenAt        time.Time `json:"seen_at"`
}

// TableName specifies the table name for SeenMessage
func (SeenMessage) TableName() string {
	return "seen_messages"
}

// CachedReservation stores booking metadata so it is fetched at most once.
type CachedReservation struct {
	ReservationID int64     `json:"reservation_id" gorm:"primaryKey"`
	GuestName     string    `json:"guest_name" gorm:"type:varchar(255);not null"`
	PropertyName  string    `json:"property_name" gorm:"type:varchar(255);not null"`
	ArrivalDate   string    `json:"arrival_date" gorm:"type:varchar(16);not null"`
	DepartureDate string    `json:"departure_date" gorm:"type:varchar(16);not null"`
	CachedAt      time.Time `json:"cached_at"`
}

// TableName specifies the table name for CachedReservation
func (CachedReservation) TableName() string {
	return "reservation_cache"
}

// Message directions on the booking platform.
const (
	DirectionGuest = "guest"
	DirectionHost  = "host"
)

// GuestMessage is one message in a reservation conversation.
type GuestMessage struct {
	MessageID int64  `json:"message_id"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Direction string `json:"direction"`
}

// ReservationInfo is the booking metadata the pipeline needs.
type ReservationInfo struct {
	ReservationID int64  `json:"reservation_id"`
	GuestName     string `json:"guest_name"`
	PropertyName  string `json:"property_name"`
	ArrivalDate   string `json:"arrival_date"`
	DepartureDate string `json:"departure_date"`
}

// ThreadSummary drives the activity scan. Transient, never persisted.
type ThreadSummary struct {
	ReservationID    int64     `json:"reservation_id"`
	LatestActivityAt time.Time `json:"latest_activity_at"`
}

// ThreadPage is one page of the platform's recent-activity listing,
// sorted most-recent-first by the source.
type ThreadPage struct {
	Threads []ThreadSummary `json:"threads"`
	HasMore bool            `json:"has_more"`
}

// ConversationContext is everything the classifier needs to understand
// a guest message.
type ConversationContext struct {
	ReservationID       int64
	GuestName           string
	PropertyName        string
	ArrivalDate         string
	DepartureDate       string
	DefaultCheckinTime  string
	DefaultCheckoutTime string
	PreviousMessages    []string
}

// ClassificationResult is the structured output of intent classification.
type ClassificationResult struct {
	Intent           string  `json:"intent"`
	Confidence       float64 `json:"confidence"`
	ExtractedTime    string  `json:"extracted_time"`
	NeedsFollowup    bool    `json:"needs_followup"`
	FollowupQuestion string  `json:"followup_question"`
}

// Cleaner answers produced by the response parser.
const (
	AnswerYes         = "yes"
	AnswerNo          = "no"
	AnswerConditional = "conditional"
	AnswerUnclear     = "unclear"
)

// ParsedResponse is the structured interpretation of a cleaner's free-text reply.
type ParsedResponse struct {
	Answer       string  `json:"answer"`
	Conditions   string  `json:"conditions"`
	ProposedTime string  `json:"proposed_time"`
	Confidence   float64 `json:"confidence"`
}

// ComposedReply is a guest-facing message proposed by the composer.
type ComposedReply struct {
	Body       string  `json:"body"`
	Confidence float64 `json:"confidence"`
}

// CleanerQuery is the question sent to the cleaning staff.
type CleanerQuery struct {
	RequestID     string `json:"request_id"`
	CleanerName   string `json:"cleaner_name"`
	GuestName     string `json:"guest_name"`
	PropertyName  string `json:"property_name"`
	RequestType   string `json:"request_type"`
	OriginalTime  string `json:"original_time"`
	RequestedTime string `json:"requested_time"`
	Date          string `json:"date"`
	Message       string `json:"message"`
}

// CleanerResponse is a cleaner's raw reply, correlated by request id.
type CleanerResponse struct {
	RequestID  string    `json:"request_id"`
	RawText    string    `json:"raw_text"`
	ReceivedAt time.Time `json:"received_at"`
}

// ReviewRequest is the body of a draft review call.
type ReviewRequest struct {
	Verdict           string  `json:"verdict" binding:"required"`
	ActualMessageSent *string `json:"actual_message_sent"`
	OwnerComment      *string `json:"owner_comment"`
}

// DraftDetailResponse pairs a draft with its parent request.
type DraftDetailResponse struct {
	Draft   Draft             `json:"draft"`
	Request *ProcessedRequest `json:"request,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
