package lanes

import (
	"context"
	"fmt"
	"memorylane/apperr"
	"memorylane/models"
)

const errPublishEmpty = "Cannot publish a memory lane without any memories"

// transitions lists the reachable targets per status. Archived lanes have to
// go back to draft before they can be published again.
var transitions = map[models.LaneStatus]map[models.LaneStatus]bool{
	models.StatusDraft: {
		models.StatusPublished: true,
		models.StatusArchived:  true,
	},
	models.StatusPublished: {
		models.StatusDraft:    true,
		models.StatusArchived: true,
	},
	models.StatusArchived: {
		models.StatusDraft: true,
	},
}

func CanTransition(from, to models.LaneStatus) bool {
	return transitions[from][to]
}

func invalidStatus(status models.LaneStatus) *apperr.Error {
	return apperr.Validation("invalid status "+string(status), "Status must be one of: draft, published, archived")
}

// checkTransition enforces the transition table and the publish guard
func (s *Service) checkTransition(ctx context.Context, lane *models.MemoryLane, to models.LaneStatus) error {
	if !to.Valid() {
		return invalidStatus(to)
	}
	if !CanTransition(lane.Status, to) {
		msg := fmt.Sprintf("Cannot change memory lane status from %s to %s", lane.Status, to)
		return apperr.BusinessRule(msg, "").With("laneId", lane.ID)
	}
	if to != models.StatusPublished {
		return nil
	}
	count, err := s.repo.CountMemories(ctx, lane.ID)
	if err != nil {
		return dbError("count memories", err)
	}
	if count == 0 {
		return apperr.BusinessRule(errPublishEmpty, "").With("laneId", lane.ID)
	}
	return nil
}
