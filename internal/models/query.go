package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Chat response actions.
const (
	ActionReply   = "reply"
	ActionWarning = "warning"
	ActionError   = "error"
)

const defaultSessionID = "guest"

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
	Action   string `json:"action"`
}

// AnalyzeResponse is the body returned by POST /analyze_jd.
type AnalyzeResponse struct {
	Response string `json:"response"`
}

// TTSRequest is the body of POST /tts.
type TTSRequest struct {
	Text string `json:"text"`
}

// Validate trims the message, defaults the session id and enforces maxChars (in characters).
// The returned error text is shown to the user as-is.
func (r *ChatRequest) Validate(maxChars int) error {
	r.Message = strings.TrimSpace(r.Message)
	if r.SessionID == "" {
		r.SessionID = defaultSessionID
	}
	if r.Message == "" {
		return errors.New("⚠️ Please type a message first.")
	}
	if maxChars > 0 && utf8.RuneCountInString(r.Message) > maxChars {
		return fmt.Errorf("⚠️ Message is too long (max %d characters).", maxChars)
	}
	return nil
}

// Validate trims the text and enforces maxChars.
func (r *TTSRequest) Validate(maxChars int) error {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return errors.New("text cannot be empty")
	}
	if maxChars > 0 && utf8.RuneCountInString(r.Text) > maxChars {
		return fmt.Errorf("text is too long (max %d characters)", maxChars)
	}
	return nil
}
