package assessment

import (
	"context"
	"strings"

	domain "claimflow/internal/domain/assessment"
	"claimflow/internal/ports"
)

// GetAssessment returns one assessment the actor may read.
func (s *Service) GetAssessment(ctx context.Context, assessmentID string, actor domain.Actor) (ports.Assessment, error) {
	if err := checkContext(ctx); err != nil {
		return ports.Assessment{}, err
	}
	if err := s.ready(); err != nil {
		return ports.Assessment{}, err
	}

	assessmentID = strings.TrimSpace(assessmentID)
	if assessmentID == "" {
		return ports.Assessment{}, errAssessmentIDRequired
	}
	assessment, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return ports.Assessment{}, err
	}
	if err := s.authorize(ctx, actor, domain.ActionRead, assessmentID); err != nil {
		return ports.Assessment{}, err
	}
	return assessment, nil
}

// ListByStage returns the assessments in the given stages that the actor may
// read. An empty stage set means every stage. The store is read once; the
// evaluator runs on the joined rows.
func (s *Service) ListByStage(ctx context.Context, input ListByStageInput) ([]ports.AssessmentListRow, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	stages := make([]domain.Stage, 0, len(input.Stages))
	for _, raw := range input.Stages {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		stage, err := domain.ParseStage(raw)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	rows, err := s.repo.ListAssessments(ctx, ports.AssessmentListFilter{Stages: stages})
	if err != nil {
		return nil, err
	}

	visible := make([]ports.AssessmentListRow, 0, len(rows))
	for _, row := range rows {
		if domain.Evaluate(input.Actor, domain.ActionRead, row.AccessFacts()) {
			visible = append(visible, row)
		}
	}
	return visible, nil
}

// StageCounts aggregates the actor's visible assessments per stage, in stage
// order, computed fresh on every call.
func (s *Service) StageCounts(ctx context.Context, actor domain.Actor) ([]StageCount, error) {
	rows, err := s.ListByStage(ctx, ListByStageInput{Actor: actor})
	if err != nil {
		return nil, err
	}

	byStage := make(map[domain.Stage]int, len(rows))
	for _, row := range rows {
		byStage[row.Stage]++
	}

	out := make([]StageCount, 0, len(domain.Stages()))
	for _, stage := range domain.Stages() {
		out = append(out, StageCount{Stage: stage, Count: byStage[stage]})
	}
	return out, nil
}
