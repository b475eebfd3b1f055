package models

// Prediction is the result of classifying one message text.
// Confidence is the raw model probability in [0,1]; IsToxic applies the
// model's fixed 0.5 split, not the operator-configurable moderation threshold.
type Prediction struct {
	IsToxic    bool    `json:"is_toxic"`
	Confidence float64 `json:"confidence"`
}

// CacheStats describes prediction cache usage.
type CacheStats struct {
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	Usage    float64 `json:"usage"`
}

// Violation describes one toxic message attributed to its author.
type Violation struct {
	UserID    int64
	UserName  string
	ChatID    int64
	ChatTitle string
	Content   string
	// Confidence is the classifier probability in [0,1].
	Confidence float64
}
