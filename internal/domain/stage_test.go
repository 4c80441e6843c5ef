package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(score int) FeedbackRecord {
	rec := FeedbackRecord{Criteria: map[Criterion]CriterionResult{}, Summary: "ok", Improvements: []string{"more detail"}}
	for _, c := range Criteria {
		rec.Criteria[c] = CriterionResult{Score: score, CriterionFeedback: CriterionFeedback{Feedback: "f", Suggestions: []string{"s"}}}
	}
	rec.OverallScore = rec.Sum()
	return rec
}

func TestStart(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s := PracticeSession{ID: "s1", Stage: StageSetup}
	require.NoError(t, s.Start(now))
	assert.Equal(t, StageActive, s.Stage)
	require.NotNil(t, s.StartedAt)
	assert.Equal(t, now, *s.StartedAt)

	err := s.Start(now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, now, *s.StartedAt)
}

func TestActivate(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tests := []struct {
		name        string
		stage       Stage
		wantStage   Stage
		wantChanged bool
		wantErr     bool
	}{
		{"setup promotes", StageSetup, StageActive, true, false},
		{"active no-op", StageActive, StageActive, false, false},
		{"completed rejects", StageCompleted, StageCompleted, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := PracticeSession{ID: "x", Stage: tt.stage}
			changed, err := s.Activate(now)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidState)
				var ise *InvalidStateError
				require.ErrorAs(t, err, &ise)
				assert.Equal(t, []Stage{StageSetup, StageActive}, ise.Required)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantStage, s.Stage)
		})
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := PracticeSession{ID: "s1", Stage: StageSetup}
	require.NoError(t, s.Start(start))

	require.NoError(t, s.Complete(start.Add(90*time.Second+500*time.Millisecond), sampleRecord(4)))
	assert.Equal(t, StageCompleted, s.Stage)
	require.NotNil(t, s.Duration)
	assert.Equal(t, 90, *s.Duration)
	require.NotNil(t, s.OverallScore)
	assert.Equal(t, 28, *s.OverallScore)
	assert.Len(t, s.CriteriaScores, 7)
	assert.Equal(t, "ok", *s.Feedback)

	// write-once
	err := s.Complete(start.Add(time.Hour), sampleRecord(1))
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 28, *s.OverallScore)
	assert.Equal(t, 90, *s.Duration)
}

func TestComplete_FromSetupRejected(t *testing.T) {
	t.Parallel()
	s := PracticeSession{ID: "s1", Stage: StageSetup}
	err := s.Complete(time.Now(), sampleRecord(3))
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StageSetup, s.Stage)
	assert.Nil(t, s.OverallScore)
}

func TestComplete_ClockSkewClampsDuration(t *testing.T) {
	t.Parallel()
	start := time.Now()
	s := PracticeSession{ID: "s1", Stage: StageSetup}
	require.NoError(t, s.Start(start))
	require.NoError(t, s.Complete(start.Add(-5*time.Second), sampleRecord(2)))
	assert.Equal(t, 0, *s.Duration)
}

// Random operation sequences never move a session backwards.
func TestStageMonotonicity(t *testing.T) {
	t.Parallel()
	rank := map[Stage]int{StageSetup: 0, StageActive: 1, StageCompleted: 2}
	ops := []func(*PracticeSession, time.Time){
		func(s *PracticeSession, now time.Time) { _ = s.Start(now) },
		func(s *PracticeSession, now time.Time) { _, _ = s.Activate(now) },
		func(s *PracticeSession, now time.Time) { _ = s.Complete(now, sampleRecord(3)) },
	}
	now := time.Now()
	for a := range ops {
		for b := range ops {
			for c := range ops {
				s := PracticeSession{ID: "m", Stage: StageSetup}
				prev := rank[s.Stage]
				for _, i := range []int{a, b, c} {
					ops[i](&s, now)
					cur := rank[s.Stage]
					assert.GreaterOrEqual(t, cur, prev)
					prev = cur
				}
			}
		}
	}
}

func TestInterviewStageValid(t *testing.T) {
	t.Parallel()
	for _, s := range InterviewStages {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, InterviewStage("final-round").Valid())
	assert.False(t, InterviewStage("").Valid())
}

func TestTokenUsageAdd(t *testing.T) {
	t.Parallel()
	a := TokenUsage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5}
	b := TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2, Estimated: true}
	got := a.Add(b)
	assert.Equal(t, TokenUsage{PromptTokens: 4, CompletionTokens: 3, TotalTokens: 7, Estimated: true}, got)
}
