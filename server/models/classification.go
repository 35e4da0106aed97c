package models

import (
	"time"

	"github.com/san-kum/pose-sentinel/server/pose"
)

// ClassifyRequest carries one frame of keypoints for a tracked subject.
// Elapsed is the time since the previous frame of the same session; when
// it is omitted the elapsed time is derived from Timestamp (milliseconds).
type ClassifyRequest struct {
	SessionID string      `json:"session_id"`
	Keypoints [][]float64 `json:"keypoints" binding:"required"`
	Elapsed   *float64    `json:"dt,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Snapshot  string      `json:"snapshot,omitempty"`
}

type ClassifyResponse struct {
	SessionID   string           `json:"session_id"`
	Label       pose.Label       `json:"label"`
	Confidences pose.Confidences `json:"confidences"`
	Extra       pose.Diagnostics `json:"extra"`
	Elapsed     float64          `json:"dt"`
	Alerted     bool             `json:"alerted"`
	Timestamp   int64            `json:"timestamp"`
}

type AlertStatus string

const (
	StatusNew       AlertStatus = "new"
	StatusConfirmed AlertStatus = "confirmed"
	StatusDismissed AlertStatus = "dismissed"
)

// Alert is a persisted high confidence detection.
type Alert struct {
	ID          string            `json:"id"`
	Timestamp   string            `json:"timestamp"`
	Pose        string            `json:"pose"`
	Confidence  float64           `json:"confidence"`
	Status      AlertStatus       `json:"status"`
	SessionID   string            `json:"session_id,omitempty"`
	Snapshot    string            `json:"snapshot,omitempty"`
	Confidences *pose.Confidences `json:"confidences,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CreateAlertRequest is a manually reported alert. Every field must be
// present.
type CreateAlertRequest struct {
	Timestamp  string   `json:"timestamp" binding:"required"`
	Pose       string   `json:"pose" binding:"required"`
	Confidence *float64 `json:"confidence" binding:"required"`
	Status     string   `json:"status" binding:"required"`
	SessionID  string   `json:"session_id"`
}

type AlertStatusUpdate struct {
	Status string `json:"status" binding:"required"`
}

type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionReset acknowledges a cleared session.
type SessionReset struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
}

type APIResponse struct {
	Success bool          `json:"success"`
	Data    any           `json:"data"`
	Error   *APIError     `json:"error"`
	Meta    *ResponseMeta `json:"meta"`
}

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type ResponseMeta struct {
	RequestID      string    `json:"request_id"`
	Timestamp      time.Time `json:"timestamp"`
	ProcessingTime float64   `json:"processing_time"`
	Version        string    `json:"version"`
}
