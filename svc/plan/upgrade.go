package plan

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hostelkit/pkg/sanitizer"
)

// UpgradeStatus is the state of an upgrade request. Pending resolves once.
type UpgradeStatus string

const (
	UpgradePending  UpgradeStatus = "pending"
	UpgradeApproved UpgradeStatus = "approved"
	UpgradeRejected UpgradeStatus = "rejected"
)

// UpgradeRequest asks an operator to raise a custom plan's capacity.
type UpgradeRequest struct {
	ID                string        `json:"id" bson:"id"`
	RequesterID       string        `json:"requester_id" bson:"requester_id"`
	RequestedBeds     int           `json:"requested_beds" bson:"requested_beds"`
	RequestedBranches int           `json:"requested_branches" bson:"requested_branches"`
	Message           string        `json:"message,omitempty" bson:"message,omitempty"`
	Status            UpgradeStatus `json:"status" bson:"status"`
	ResponderID       string        `json:"responder_id,omitempty" bson:"responder_id,omitempty"`
	ResponseMessage   string        `json:"response_message,omitempty" bson:"response_message,omitempty"`
	CreatedAt         time.Time     `json:"created_at" bson:"created_at"`
	RespondedAt       *time.Time    `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

// MaxMessageLength caps upgrade request and response messages, in runes.
const MaxMessageLength = 1000

var cleanMessage = sanitizer.Compose(
	sanitizer.RemoveControlChars,
	sanitizer.RemoveExtraWhitespace,
	sanitizer.MaxLength(MaxMessageLength),
)

// UpgradeParams describes a new upgrade request.
type UpgradeParams struct {
	PlanID      string
	RequesterID string
	Beds        int
	Branches    int
	Message     string
}

// ResponseParams resolves a pending upgrade request.
type ResponseParams struct {
	PlanID      string
	RequestID   string
	ResponderID string
	Approve     bool
	Message     string
}

// UpgradeRequest returns the request with the given id.
func (p *Plan) UpgradeRequest(id string) (UpgradeRequest, bool) {
	for _, r := range p.UpgradeRequests {
		if r.ID == id {
			return r, true
		}
	}
	return UpgradeRequest{}, false
}

func (p *Plan) pendingRequestFrom(requesterID string) bool {
	for _, r := range p.UpgradeRequests {
		if r.RequesterID == requesterID && r.Status == UpgradePending {
			return true
		}
	}
	return false
}

func (p *Plan) addUpgradeRequest(params UpgradeParams, now time.Time) (UpgradeRequest, error) {
	if !p.IsCustom {
		return UpgradeRequest{}, ErrNotCustomPlan
	}
	if p.pendingRequestFrom(params.RequesterID) {
		return UpgradeRequest{}, ErrUpgradeRequestPending
	}
	r := UpgradeRequest{
		ID:                uuid.NewString(),
		RequesterID:       params.RequesterID,
		RequestedBeds:     params.Beds,
		RequestedBranches: params.Branches,
		Message:           cleanMessage(params.Message),
		Status:            UpgradePending,
		CreatedAt:         now,
	}
	p.UpgradeRequests = append(p.UpgradeRequests, r)
	return r, nil
}

// resolveUpgradeRequest moves a pending request to approved or rejected.
// Approval raises the plan's bed cap and branch allowance to the requested
// values; it never lowers them.
func (p *Plan) resolveUpgradeRequest(params ResponseParams, now time.Time) (UpgradeRequest, error) {
	for i := range p.UpgradeRequests {
		r := &p.UpgradeRequests[i]
		if r.ID != params.RequestID {
			continue
		}
		if r.Status != UpgradePending {
			return UpgradeRequest{}, ErrUpgradeRequestResolved
		}
		r.Status = UpgradeRejected
		if params.Approve {
			r.Status = UpgradeApproved
			p.raiseCapacity(r.RequestedBeds, r.RequestedBranches)
		}
		r.ResponderID = params.ResponderID
		r.ResponseMessage = cleanMessage(params.Message)
		r.RespondedAt = &now
		return *r, nil
	}
	return UpgradeRequest{}, ErrUpgradeRequestNotFound
}

func (p *Plan) raiseCapacity(beds, branches int) {
	if beds > p.BedCeiling() {
		p.MaxBeds = IntPtr(beds)
	}
	if branches > p.BranchCount {
		p.AllowMultipleBranches = true
		p.BranchCount = branches
	}
}
