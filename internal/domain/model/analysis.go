package model

import (
	"time"

	"sproutcv/internal/domain"

	"github.com/google/uuid"
)

// Analysis stores the outcome of one resume-vs-job-description AI run.
// The resume text is held encrypted at rest; the job description is kept
// only as a digest so the row carries no second copy of user content.
type Analysis struct {
	ID               string
	UserID           string
	Provider         string // "gemini" | "openai"
	Model            string
	ResumeCiphertext string // AES-GCM, base64
	JobDescDigest    string // sha256 hex of the job description
	Score            int    // 0..100 match score reported by the model
	Result           string // model output (tailoring suggestions etc.)
	TokensIn         int
	TokensOut        int
	CreditCost       int64
	CreatedAt        time.Time
}

func NewAnalysis(userID, provider, model string) (*Analysis, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Analysis{
		ID:        uuid.NewString(),
		UserID:    userID,
		Provider:  provider,
		Model:     model,
		CreatedAt: time.Now(),
	}, nil
}
