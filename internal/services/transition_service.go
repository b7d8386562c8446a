package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"salespipeline/internal/authz"
	"salespipeline/internal/events"
	"salespipeline/internal/metrics"
	"salespipeline/internal/models"
)

// Closing outcomes accepted by Close.
const (
	OutcomeLost    = "lost"
	OutcomeDropped = "dropped"
)

func decodePayload(order int, raw json.RawMessage) (models.StagePayload, error) {
	p, err := models.DecodeStagePayload(order, raw)
	if errors.Is(err, models.ErrNoStagePayload) {
		return nil, newError(KindValidation, "stage %s does not capture data", models.StageCode(order))
	}
	if err != nil {
		return nil, newError(KindValidation, "%s", err.Error())
	}
	return p, nil
}

// RequestTransition moves an opportunity to target. The checks run in a
// fixed order and the first failure wins:
//
//  1. terminal opportunity: Locked
//  2. target equals the current stage: the draft is merged and stored
//  3. target is not the next catalog stage: InvalidTransition
//  4. merged data of the current stage is incomplete: IncompleteData
//  5. commit
//
// stageData is the record of the stage being left. The call is a single
// atomic read-modify-write on the aggregate.
func (s *OpportunityService) RequestTransition(ctx context.Context, p authz.Principal, id int64, target int, stageData json.RawMessage) (*models.OpportunityView, error) {
	rules, err := s.validator.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	var from int
	opp, err := s.repo.Mutate(ctx, id, func(opp *models.Opportunity) error {
		if err := authorizeWrite(p, opp); err != nil {
			return err
		}
		from = opp.CurrentStage
		current := opp.CurrentStage

		if opp.IsTerminal() {
			return newError(KindLocked, "opportunity %s is %s and can no longer change stage", opp.DisplayID, opp.Status)
		}

		if target == current {
			if IsStageLocked(opp, target) {
				return newError(KindLocked, "stage %s is locked", models.StageCode(target))
			}
			payload, err := decodePayload(current, stageData)
			if err != nil {
				return err
			}
			opp.StageData.Merge(payload)
			opp.UpdatedBy = p.UserID
			return nil
		}

		if next, ok := models.NextStage(current); !ok || target != next {
			if target < current {
				return newError(KindInvalidTransition, "cannot move backward from %s to %s",
					models.StageCode(current), models.StageCode(target))
			}
			return newError(KindInvalidTransition, "cannot skip from %s to %s",
				models.StageCode(current), models.StageCode(target))
		}

		payload, err := decodePayload(current, stageData)
		if err != nil {
			return err
		}
		if err := rules.Validate(opp.StageData.Merged(payload)); err != nil {
			return err
		}

		opp.StageData.Merge(payload)
		opp.SetStage(target)
		if target == models.StageWon {
			opp.WinProbability = 100
		}
		opp.RecomputeWeightedRevenue()
		opp.UpdatedBy = p.UserID
		return nil
	})
	if err != nil {
		return nil, s.reject("change_stage", id, p, fromRepo(err, "opportunity"))
	}

	if opp.CurrentStage != from {
		s.committed(ctx, p, opp, from)
	}
	return NewView(opp), nil
}

func (s *OpportunityService) committed(ctx context.Context, p authz.Principal, opp *models.Opportunity, from int) {
	code := models.StageCode(opp.CurrentStage)
	metrics.ObserveTransition(code)
	s.log.WithFields(logrus.Fields{
		"opportunity": opp.DisplayID,
		"from":        models.StageCode(from),
		"to":          code,
		"user_id":     p.UserID,
	}).Info("stage changed")
	publish(ctx, s.events, s.log, events.SubjectStageChanged, events.StageChangedEvent{
		EventType:     events.SubjectStageChanged,
		OpportunityID: opp.ID,
		DisplayID:     opp.DisplayID,
		FromStage:     models.StageCode(from),
		ToStage:       code,
		Status:        string(opp.Status),
		ActorID:       p.UserID,
		Timestamp:     time.Now().UTC(),
	})
}

// UpdateStageData edits the record of a stage that has already been
// reached. Stages behind the lock line reject every write; completed
// stages must stay complete after the edit.
func (s *OpportunityService) UpdateStageData(ctx context.Context, p authz.Principal, id int64, order int, stageData json.RawMessage) (*models.OpportunityView, error) {
	if !models.ValidStage(order) {
		return nil, s.reject("update_stage_data", id, p, newError(KindValidation, "unknown stage %s", models.StageCode(order)))
	}
	rules, err := s.validator.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	opp, err := s.repo.Mutate(ctx, id, func(opp *models.Opportunity) error {
		if err := authorizeWrite(p, opp); err != nil {
			return err
		}
		if opp.IsTerminal() {
			return newError(KindLocked, "opportunity %s is %s and read-only", opp.DisplayID, opp.Status)
		}
		if order > opp.CurrentStage {
			return newError(KindInvalidTransition, "stage %s has not been reached, current stage is %s",
				models.StageCode(order), models.StageCode(opp.CurrentStage))
		}
		if IsStageLocked(opp, order) {
			return newError(KindLocked, "stage %s is locked", models.StageCode(order))
		}
		payload, err := decodePayload(order, stageData)
		if err != nil {
			return err
		}
		if order < opp.CurrentStage {
			if err := rules.Validate(opp.StageData.Merged(payload)); err != nil {
				return err
			}
		}
		opp.StageData.Merge(payload)
		opp.UpdatedBy = p.UserID
		return nil
	})
	if err != nil {
		return nil, s.reject("update_stage_data", id, p, fromRepo(err, "opportunity"))
	}
	return NewView(opp), nil
}

// Close ends an active opportunity as Lost (L7) or Dropped (L8) from any
// stage. A reason is required.
func (s *OpportunityService) Close(ctx context.Context, p authz.Principal, id int64, outcome, reason string) (*models.OpportunityView, error) {
	var target int
	switch strings.ToLower(strings.TrimSpace(outcome)) {
	case OutcomeLost:
		target = models.StageLost
	case OutcomeDropped:
		target = models.StageDropped
	default:
		return nil, s.reject("close", id, p, newError(KindValidation, "outcome must be %q or %q", OutcomeLost, OutcomeDropped))
	}

	var from int
	opp, err := s.repo.Mutate(ctx, id, func(opp *models.Opportunity) error {
		if err := authorizeWrite(p, opp); err != nil {
			return err
		}
		from = opp.CurrentStage
		if opp.IsTerminal() {
			return newError(KindLocked, "opportunity %s is %s and can no longer change stage", opp.DisplayID, opp.Status)
		}
		closure := models.ClosureData{Stage: target, Reason: reason}
		if missing := closure.MissingFields(); len(missing) > 0 {
			return incompleteData(models.StageCode(target), missing)
		}
		opp.StageData.Merge(closure)
		opp.SetStage(target)
		opp.WinProbability = 0
		opp.RecomputeWeightedRevenue()
		opp.UpdatedBy = p.UserID
		return nil
	})
	if err != nil {
		return nil, s.reject("close", id, p, fromRepo(err, "opportunity"))
	}

	s.committed(ctx, p, opp, from)
	publish(ctx, s.events, s.log, events.SubjectClosed, events.ClosedEvent{
		EventType:     events.SubjectClosed,
		OpportunityID: opp.ID,
		DisplayID:     opp.DisplayID,
		Outcome:       string(opp.Status),
		Reason:        strings.TrimSpace(reason),
		ActorID:       p.UserID,
		Timestamp:     time.Now().UTC(),
	})
	return NewView(opp), nil
}
