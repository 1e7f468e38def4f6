package quotes

import (
	"context"
	"time"

	"printq/internal/core/apperror"
	"printq/internal/core/security"
)

// ApprovalReason is the recorded justification for every supervisor signoff
// on below-suggested pricing.
const ApprovalReason = "final price below suggested"

// Supervisor is an authenticated user acting as approver.
type Supervisor struct {
	ID   string
	Role security.Role
}

// Authenticator verifies approver credentials against the user store.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Supervisor, error)
}

// Credentials are supervisor credentials supplied alongside a request that
// needs signoff.
type Credentials struct {
	Email    string `json:"supervisorEmail"`
	Password string `json:"supervisorPassword"`
}

// ApprovalGate enforces the below-suggested pricing rule: a sales user may
// not price under the suggested price without a supervisor or admin
// countersigning.
type ApprovalGate struct {
	auth Authenticator
}

func NewApprovalGate(auth Authenticator) *ApprovalGate {
	return &ApprovalGate{auth: auth}
}

// Authorize runs the gate for an actor pricing below suggested.
//
// Elevated actors approve their own pricing implicitly; no record is
// written. A sales actor must supply supervisor credentials, which are
// authenticated and checked for an elevated role. The returned Approval is
// nil when no record is needed.
func (g *ApprovalGate) Authorize(ctx context.Context, actorRole security.Role, belowSuggested bool, creds *Credentials) (*Approval, error) {
	if !belowSuggested || actorRole.IsElevated() {
		return nil, nil
	}

	if creds == nil || creds.Email == "" || creds.Password == "" {
		return nil, apperror.NewApprovalRequired("pricing below suggested requires supervisor credentials")
	}

	sup, err := g.auth.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid supervisor credentials")
	}
	if !sup.Role.IsElevated() {
		return nil, apperror.NewForbidden("approver must be supervisor or admin")
	}

	now := time.Now().UTC()
	reason := ApprovalReason
	return &Approval{
		ApprovedBy:     &sup.ID,
		ApprovedAt:     &now,
		ApprovedReason: &reason,
	}, nil
}
