package domain

import (
	"fmt"
	"time"
)

// Stage is the lifecycle position of a practice session.
type Stage string

const (
	StageSetup     Stage = "setup"
	StageActive    Stage = "active"
	StageCompleted Stage = "completed"
)

func (s *PracticeSession) invalid(required ...Stage) error {
	return &InvalidStateError{SessionID: s.ID, Current: s.Stage, Required: required}
}

// Start moves setup -> active and records StartedAt.
func (s *PracticeSession) Start(now time.Time) error {
	if s.Stage != StageSetup {
		return s.invalid(StageSetup)
	}
	t := now.UTC()
	s.Stage = StageActive
	s.StartedAt = &t
	return nil
}

// Activate is the guard used before a message is sent. A setup session is
// promoted to active; an active session is left untouched.
func (s *PracticeSession) Activate(now time.Time) (changed bool, err error) {
	switch s.Stage {
	case StageSetup:
		return true, s.Start(now)
	case StageActive:
		return false, nil
	default:
		return false, s.invalid(StageSetup, StageActive)
	}
}

// Complete moves active -> completed and freezes the outcome fields.
func (s *PracticeSession) Complete(now time.Time, rec FeedbackRecord) error {
	if s.Stage != StageActive {
		return s.invalid(StageActive)
	}
	if s.OverallScore != nil || s.CompletedAt != nil {
		return fmt.Errorf("%w: outcome already recorded for session %s", ErrInvalidState, s.ID)
	}
	t := now.UTC()
	dur := 0
	if s.StartedAt != nil {
		if d := int(t.Sub(*s.StartedAt) / time.Second); d > 0 {
			dur = d
		}
	}
	overall := rec.Sum()
	summary := rec.Summary

	s.Stage = StageCompleted
	s.CompletedAt = &t
	s.Duration = &dur
	s.OverallScore = &overall
	s.CriteriaScores = rec.Scores()
	s.CriteriaFeedback = rec.Feedbacks()
	s.Feedback = &summary
	s.Improvements = append([]string(nil), rec.Improvements...)
	return nil
}
