package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"sproutcv/internal/domain"
	"sproutcv/internal/domain/model"
	"sproutcv/internal/domain/ports/adapter"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/infra/metrics"
	"sproutcv/internal/infra/security"
)

// Compile-time check
var _ AnalysisUseCase = (*analysisUC)(nil)

type AnalysisUseCase interface {
	// Analyze scores a resume against a job description, deducting usage
	// credits and storing the result in one transaction.
	Analyze(ctx context.Context, userID, resume, jobDescription string) (*model.Analysis, error)

	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Analysis, error)
}

const analysisSystemPrompt = `You are a resume analyst. Compare the resume against the job description.
Reply with a line "SCORE: <0-100>" followed by concrete tailoring suggestions:
missing keywords, experience to emphasize, and sections to rework.`

type AnalysisConfig struct {
	Model          string
	MaxInputTokens int
	CreditCost     int64
}

type analysisUC struct {
	analyses repository.AnalysisRepository
	ledger   LedgerUseCase
	ai       adapter.AIServiceAdapter
	enc      *security.EncryptionService
	tm       repository.TransactionManager
	cfg      AnalysisConfig
	log      *zerolog.Logger
}

func NewAnalysisUseCase(
	analyses repository.AnalysisRepository,
	ledger LedgerUseCase,
	ai adapter.AIServiceAdapter,
	enc *security.EncryptionService,
	tm repository.TransactionManager,
	cfg AnalysisConfig,
	logger *zerolog.Logger,
) *analysisUC {
	if cfg.CreditCost <= 0 {
		cfg.CreditCost = 1
	}
	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = 16000
	}
	return &analysisUC{analyses: analyses, ledger: ledger, ai: ai, enc: enc, tm: tm, cfg: cfg, log: logger}
}

func (u *analysisUC) Analyze(ctx context.Context, userID, resume, jobDescription string) (*model.Analysis, error) {
	resume = strings.TrimSpace(resume)
	jobDescription = strings.TrimSpace(jobDescription)
	if resume == "" || jobDescription == "" {
		return nil, domain.ErrInvalidArgument
	}

	messages := []adapter.Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: "RESUME:\n" + resume + "\n\nJOB DESCRIPTION:\n" + jobDescription},
	}

	tokens, err := u.ai.CountTokens(ctx, u.cfg.Model, messages)
	if err == nil && tokens > u.cfg.MaxInputTokens {
		return nil, fmt.Errorf("%w: input of %d tokens exceeds limit of %d", domain.ErrInvalidArgument, tokens, u.cfg.MaxInputTokens)
	}

	// The balance gate runs before the provider is contacted so a broke
	// account never generates provider cost. The authoritative check is the
	// ledger append below, which fails inside the transaction if a
	// concurrent spend drained the balance in between.
	balance, err := u.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < u.cfg.CreditCost {
		return nil, domain.ErrInsufficientCredits
	}

	start := time.Now()
	reply, usage, err := u.ai.Complete(ctx, u.cfg.Model, messages)
	metrics.ObserveAICall(u.ai.Name(), u.cfg.Model, time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("ai completion: %w", err)
	}
	metrics.AddAITokens(u.ai.Name(), u.cfg.Model, usage.PromptTokens, usage.CompletionTokens)

	a, err := model.NewAnalysis(userID, u.ai.Name(), u.cfg.Model)
	if err != nil {
		return nil, err
	}
	a.ResumeCiphertext, err = u.enc.Encrypt(resume)
	if err != nil {
		return nil, fmt.Errorf("encrypt resume: %w", err)
	}
	digest := sha256.Sum256([]byte(jobDescription))
	a.JobDescDigest = hex.EncodeToString(digest[:])
	a.Score = parseScore(reply)
	a.Result = reply
	a.TokensIn = usage.PromptTokens
	a.TokensOut = usage.CompletionTokens
	a.CreditCost = u.cfg.CreditCost

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		desc := fmt.Sprintf("Resume analysis %s", a.ID)
		if _, err := u.ledger.Append(ctx, tx, userID, model.LedgerTypeUsage, -u.cfg.CreditCost, a.ID, desc); err != nil {
			return err
		}
		return u.analyses.Save(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Str("analysis_id", a.ID).
		Str("user_id", userID).
		Int("score", a.Score).
		Int("tokens_in", a.TokensIn).
		Msg("resume analysis stored")
	return a, nil
}

func (u *analysisUC) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.analyses.ListByUser(ctx, repository.NoTX, userID, limit, offset)
}

// parseScore extracts the "SCORE: NN" line the prompt asks for; 0 when absent.
func parseScore(reply string) int {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "SCORE:")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(strings.TrimSuffix(rest, "%"))
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 && n <= 100 {
			return n
		}
	}
	return 0
}
