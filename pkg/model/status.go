package model

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "DRAFT"
	CampaignRunning   CampaignStatus = "RUNNING"
	CampaignFinished  CampaignStatus = "FINISHED"
	CampaignCancelled CampaignStatus = "CANCELLED"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:   {CampaignRunning},
	CampaignRunning: {CampaignFinished, CampaignCancelled},
}

// CanTransitionTo reports whether the campaign state machine allows moving
// from s to next. FINISHED and CANCELLED have no outgoing edges.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignFinished || s == CampaignCancelled
}

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignDraft, CampaignRunning, CampaignFinished, CampaignCancelled:
		return true
	}
	return false
}

type BugStatus string

const (
	BugOpen       BugStatus = "OPEN"
	BugInProgress BugStatus = "IN_PROGRESS"
	BugResolved   BugStatus = "RESOLVED"
	BugClosed     BugStatus = "CLOSED"
	BugRejected   BugStatus = "REJECTED"
)

func (s BugStatus) IsValid() bool {
	switch s {
	case BugOpen, BugInProgress, BugResolved, BugClosed, BugRejected:
		return true
	}
	return false
}
