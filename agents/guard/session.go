/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package guard

import (
	"maps"
	"slices"

	"chainguard.dev/ticketagent/agents/reviewgate"
	"chainguard.dev/ticketagent/repository"
)

// ReviewStatus tracks the latest automated review of the working branch.
type ReviewStatus string

const (
	ReviewNotRequested     ReviewStatus = "not-requested"
	ReviewPending          ReviewStatus = "pending"
	ReviewApproved         ReviewStatus = "approved"
	ReviewChangesRequested ReviewStatus = "changes-requested"
)

// Phase is the coarse progress of a session.
type Phase string

const (
	PhaseExploring      Phase = "exploring"
	PhaseBranched       Phase = "branched"
	PhaseEditing        Phase = "editing"
	PhaseReviewPending  Phase = "review-pending"
	PhaseReviewApproved Phase = "review-approved"
	PhaseReviewRejected Phase = "review-rejected"
	PhasePRCreated      Phase = "pr-created"
)

// Denial records one refused tool call.
type Denial struct {
	Turn   int    `json:"turn"`
	Tool   string `json:"tool"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Session is the state of one task execution. It is owned by a single
// goroutine and mutated only by its Executor, apart from the turn counter.
type Session struct {
	Task       string
	Repository string
	Branch     string

	defaultBranch string
	baseRevision  string
	branchReady   bool
	read          map[string]struct{}
	review        ReviewStatus
	phase         Phase
	verdicts      []*reviewgate.Verdict
	denials       []Denial
	pr            *repository.PullRequest
	writes        int
	turn          int
	lastErr       error
}

// NewSession starts a session for task against repository on branch.
func NewSession(task, repository, branch string) *Session {
	return &Session{
		Task:       task,
		Repository: repository,
		Branch:     branch,
		read:       map[string]struct{}{},
		review:     ReviewNotRequested,
		phase:      PhaseExploring,
	}
}

// BeginTurn records the model turn now in progress.
func (s *Session) BeginTurn(n int) { s.turn = n }

// Turn returns the current model turn.
func (s *Session) Turn() int { return s.turn }

func (s *Session) Phase() Phase                         { return s.phase }
func (s *Session) ReviewStatus() ReviewStatus           { return s.review }
func (s *Session) DefaultBranch() string                { return s.defaultBranch }
func (s *Session) BaseRevision() string                 { return s.baseRevision }
func (s *Session) BranchReady() bool                    { return s.branchReady }
func (s *Session) Writes() int                          { return s.writes }
func (s *Session) PullRequest() *repository.PullRequest { return s.pr }

// HasRead reports whether path was read in this session.
func (s *Session) HasRead(path string) bool {
	_, ok := s.read[path]
	return ok
}

// ReadSet returns the paths read so far, sorted.
func (s *Session) ReadSet() []string {
	return slices.Sorted(maps.Keys(s.read))
}

// Verdicts returns every review verdict in the order received.
func (s *Session) Verdicts() []*reviewgate.Verdict {
	return slices.Clone(s.verdicts)
}

// LatestVerdict returns the most recent verdict, or nil.
func (s *Session) LatestVerdict() *reviewgate.Verdict {
	if len(s.verdicts) == 0 {
		return nil
	}
	return s.verdicts[len(s.verdicts)-1]
}

// Denials returns every refused call in the order they happened.
func (s *Session) Denials() []Denial {
	return slices.Clone(s.denials)
}

// LastError returns the most recent gateway error, or nil.
func (s *Session) LastError() error { return s.lastErr }

// readRef is the ref reads resolve against: the working branch once it
// exists, else the default branch ("" lets the host choose).
func (s *Session) readRef() string {
	if s.branchReady {
		return s.Branch
	}
	return s.defaultBranch
}

func (s *Session) markRead(path string) { s.read[path] = struct{}{} }

func (s *Session) recordBase(branch, revision string) {
	s.defaultBranch, s.baseRevision = branch, revision
}

func (s *Session) markBranched() {
	s.branchReady = true
	if s.phase == PhaseExploring {
		s.phase = PhaseBranched
	}
}

// markWritten moves the session to editing. A verdict on an earlier diff no
// longer describes the branch, so review starts over.
func (s *Session) markWritten() {
	s.writes++
	s.phase = PhaseEditing
	s.review = ReviewNotRequested
}

func (s *Session) beginReview() {
	s.review = ReviewPending
	s.phase = PhaseReviewPending
}

func (s *Session) recordVerdict(v *reviewgate.Verdict) {
	s.verdicts = append(s.verdicts, v)
	if v.Approved {
		s.review, s.phase = ReviewApproved, PhaseReviewApproved
	} else {
		s.review, s.phase = ReviewChangesRequested, PhaseReviewRejected
	}
}

func (s *Session) recordPullRequest(pr *repository.PullRequest) {
	s.pr = pr
	s.phase = PhasePRCreated
}

func (s *Session) recordDenial(tool, code, reason string) {
	s.denials = append(s.denials, Denial{Turn: s.turn, Tool: tool, Code: code, Reason: reason})
}
