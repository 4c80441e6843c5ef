package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestStore_MessageOrderIsGapFree(t *testing.T) {
	t.Parallel()
	st := NewStore()
	ctx := context.Background()
	id, err := st.Sessions.Create(ctx, domain.PracticeSession{Stage: domain.StageActive})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Messages.Append(ctx, id,
				domain.NewMessage{Role: domain.RoleUser, Content: "a"},
				domain.NewMessage{Role: domain.RoleAssistant, Content: "q"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	msgs, err := st.Messages.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 40)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.MessageOrder)
	}
}

func TestStore_CompletedRejectsAppend(t *testing.T) {
	t.Parallel()
	st := NewStore()
	ctx := context.Background()
	id, err := st.Sessions.Create(ctx, domain.PracticeSession{Stage: domain.StageSetup})
	require.NoError(t, err)
	_, err = st.Sessions.Update(ctx, id, func(p *domain.PracticeSession) error { return p.Start(time.Now()) })
	require.NoError(t, err)
	_, err = st.Sessions.Update(ctx, id, func(p *domain.PracticeSession) error {
		return p.Complete(time.Now(), domain.FeedbackRecord{})
	})
	require.NoError(t, err)

	_, err = st.Messages.Append(ctx, id, domain.NewMessage{Role: domain.RoleUser, Content: "late"})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = st.Sessions.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Reference(t *testing.T) {
	t.Parallel()
	st := NewStore(
		domain.Question{ID: "b", InterviewStage: domain.InterviewTeam},
		domain.Question{ID: "a", InterviewStage: domain.InterviewTeam},
		domain.Question{ID: "c", InterviewStage: domain.InterviewExecutive},
	)
	qs, err := st.Questions.ListByStage(context.Background(), domain.InterviewTeam, 1)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "a", qs[0].ID)

	st.PutJobDescription(domain.JobDescription{ID: "jd", Title: "SRE"})
	jd, err := st.JobDescs.Get(context.Background(), "jd")
	require.NoError(t, err)
	assert.Equal(t, "SRE", jd.Title)
	_, err = st.JobDescs.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_CreateWithMessages(t *testing.T) {
	t.Parallel()
	st := NewStore()
	ctx := context.Background()
	id, msgs, err := st.Sessions.CreateWithMessages(ctx, domain.PracticeSession{Stage: domain.StageActive},
		domain.NewMessage{Role: domain.RoleAssistant, Content: "hello"})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].MessageOrder)

	next, err := st.Messages.Append(ctx, id, domain.NewMessage{Role: domain.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, next[0].MessageOrder)

	_, _, err = st.Sessions.CreateWithMessages(ctx, domain.PracticeSession{ID: id})
	assert.ErrorIs(t, err, domain.ErrConflict)
	all, err := st.Messages.List(ctx, id)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
