package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
)

// SubmissionInput is a field report before scoring
type SubmissionInput struct {
	ImageURL      string
	Location      domain.Location
	Ecosystem     domain.EcosystemType
	EstimatedArea float64 // hectares; zero means the configured default
}

// Review decisions available to NGO verifiers
const (
	ReviewApprove = "approve"
	ReviewReject  = "reject"
	ReviewFlag    = "flag"
)

// Issuance decisions available to administrators
const (
	DecisionIssue  = "issue"
	DecisionReject = "reject"
)

var reviewActions = map[string]domain.AuditAction{
	ReviewApprove: domain.ActionNGOApprove,
	ReviewReject:  domain.ActionNGOReject,
	ReviewFlag:    domain.ActionNGOFlag,
}

var decisionActions = map[string]domain.AuditAction{
	DecisionIssue:  domain.ActionAdminIssueCredit,
	DecisionReject: domain.ActionAdminReject,
}

// CreateSubmission scores the photo and files a new submission.
// Scoring never fails the request: any scorer error yields the fallback analysis.
func (s *RegistryService) CreateSubmission(ctx context.Context, actor *domain.User, in SubmissionInput) (*Receipt, error) {
	// Check the role before spending a scoring call on it
	if err := requireRole(actor, domain.RoleFisherman, "create submission"); err != nil {
		return nil, err
	}
	eco, err := domain.ParseEcosystem(string(in.Ecosystem))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		return nil, &domain.ValidationError{Field: "imageUrl", Reason: "required"}
	}

	area := in.EstimatedArea
	if area == 0 {
		area = s.opts.DefaultSiteArea
	}
	analysis := s.analyze(ctx, in.ImageURL, eco)

	ev, warning, err := s.apply(ctx, string(domain.ActionSubmissionCreate), workflow.CreateSubmission{
		By:            actor,
		ImageURL:      in.ImageURL,
		Location:      in.Location,
		Ecosystem:     eco,
		EstimatedArea: area,
		Analysis:      analysis,
	}, actor)
	if err != nil {
		return nil, err
	}

	s.logger.Info("submission created",
		slog.String("submission_id", ev.TargetID),
		slog.String("user_id", actor.ID),
		slog.String("status", string(ev.Submission.Status)),
		slog.Float64("estimated_carbon", ev.Submission.EstimatedCarbon),
	)
	return &Receipt{Submission: ev.Submission, Audit: auditPtr(ev), Warning: warning}, nil
}

// ReviewSubmission applies an NGO decision: approve, reject or flag
func (s *RegistryService) ReviewSubmission(ctx context.Context, actor *domain.User, id, decision, comments string) (*Receipt, error) {
	if err := requireRole(actor, domain.RoleNGO, "review submission"); err != nil {
		return nil, err
	}
	action, ok := reviewActions[strings.ToLower(decision)]
	if !ok {
		return nil, &domain.ValidationError{Field: "decision", Reason: fmt.Sprintf("must be one of approve, reject, flag; got %q", decision)}
	}
	return s.transition(ctx, actor, id, action, comments)
}

// DecideSubmission applies an administrator decision: issue or reject
func (s *RegistryService) DecideSubmission(ctx context.Context, actor *domain.User, id, decision, comments string) (*Receipt, error) {
	if err := requireRole(actor, domain.RoleAdmin, "decide submission"); err != nil {
		return nil, err
	}
	action, ok := decisionActions[strings.ToLower(decision)]
	if !ok {
		return nil, &domain.ValidationError{Field: "decision", Reason: fmt.Sprintf("must be issue or reject; got %q", decision)}
	}
	return s.transition(ctx, actor, id, action, comments)
}

// requireRole rejects a caller before its input is looked at
func requireRole(actor *domain.User, role domain.Role, action string) error {
	if actor == nil {
		return domain.ErrNoSession
	}
	if actor.Role != role {
		return &domain.AuthorizationError{Role: actor.Role, Action: action}
	}
	return nil
}

func (s *RegistryService) transition(ctx context.Context, actor *domain.User, id string, action domain.AuditAction, comments string) (*Receipt, error) {
	ev, warning, err := s.apply(ctx, string(action), workflow.TransitionSubmission{
		By:           actor,
		SubmissionID: id,
		Action:       action,
		Comments:     strings.TrimSpace(comments),
	}, actor)
	if err != nil {
		return nil, err
	}

	// A rejected photo is rescored if it is submitted again
	if ev.Submission != nil && ev.Submission.Status == domain.StatusRejected {
		s.analyses.Invalidate(ev.Submission.ImageURL + "|")
	}
	if ev.Credit != nil {
		metrics.ObserveIssuance(string(ev.Credit.Ecosystem()), ev.Credit.Tons)
		s.logger.Info("credit issued",
			slog.String("credit_id", ev.Credit.ID),
			slog.String("submission_id", ev.Credit.SubmissionID),
			slog.Float64("tons", ev.Credit.Tons),
			slog.String("tx_hash", ev.Credit.TransactionHash),
		)
	}
	return &Receipt{Submission: ev.Submission, Credit: ev.Credit, Audit: auditPtr(ev), Warning: warning}, nil
}

// analyze returns a cached, scored or fallback analysis
func (s *RegistryService) analyze(ctx context.Context, imageRef string, eco domain.EcosystemType) domain.Analysis {
	if s.scorer == nil || s.opts.OfflineScoring {
		metrics.ObserveScorer("fallback", 0)
		return *domain.FallbackAnalysis(eco)
	}

	key := imageRef + "|" + string(eco)
	if cached, ok := s.analyses.Get(key); ok {
		metrics.ObserveScorer("cached", 0)
		return cached
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ScorerTimeout)
	defer cancel()
	start := time.Now()
	analysis, err := s.scorer.Analyze(callCtx, imageRef, eco)
	if err == nil && analysis != nil {
		err = analysis.Validate()
	}
	if err != nil || analysis == nil {
		metrics.ObserveScorer("fallback", time.Since(start))
		reason := "empty analysis"
		if err != nil {
			reason = err.Error()
		}
		s.logger.Warn("scoring failed, using fallback analysis",
			slog.String("ecosystem", string(eco)),
			slog.String("error", reason),
		)
		return *domain.FallbackAnalysis(eco)
	}

	metrics.ObserveScorer("ok", time.Since(start))
	s.analyses.Set(key, *analysis, s.opts.AnalysisTTL)
	return *analysis
}
