package models

import "time"

// DMAutomation configures automatic direct-message replies for
// comments on one Instagram post. PostID "default" is the catch-all
// used when no post-specific config exists.
type DMAutomation struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	PostID    string    `json:"postId" db:"post_id"`
	DMRules   []DMRule  `json:"dmRules" db:"-"`
	IsEnabled bool      `json:"isEnabled" db:"is_enabled"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DMRule is one keyword trigger inside a DMAutomation. Rules are
// stored as a JSON column; IsActive uses a pointer so an absent field
// defaults to active, matching configs saved by older dashboard builds.
type DMRule struct {
	TriggerKeyword string `json:"triggerKeyword"`
	Message        string `json:"message"`
	IsActive       *bool  `json:"isActive,omitempty"`
}

// Active reports whether the rule should fire. Only an explicit false
// disables it.
func (r DMRule) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// CommentHistory records the outcome of processing one live comment,
// including comments that matched no rule. The (automation, comment)
// pair is unique so re-delivered webhooks never double-send DMs.
type CommentHistory struct {
	ID                int64      `json:"id" db:"id"`
	AutomationID      int64      `json:"automationId" db:"automation_id"`
	CommentID         string     `json:"commentId" db:"comment_id"`
	CommenterUsername string     `json:"commenterUsername" db:"commenter_username"`
	ResponseType      string     `json:"responseType" db:"response_type"`
	ResponseStatus    string     `json:"responseStatus" db:"response_status"`
	ErrorMessage      *string    `json:"errorMessage,omitempty" db:"error_message"`
	MatchedRules      bool       `json:"matchedRules" db:"matched_rules"`
	Processed         bool       `json:"processed" db:"processed"`
	RespondedAt       *time.Time `json:"respondedAt,omitempty" db:"responded_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
}

// OAuthToken is a stored social-platform access token.
type OAuthToken struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	Platform    string    `json:"platform" db:"platform"`
	AccessToken []byte    `json:"-" db:"access_token"`
	IsValid     bool      `json:"isValid" db:"is_valid"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at"`
}
