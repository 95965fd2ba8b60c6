package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/models"
)

func newSubmissionFixture(scheduler *recordingScheduler) (SubmissionService, *memorySubmissionRepo, *memoryQuestionRepo) {
	questions := newMemoryQuestionRepo(question(1, models.TestCase{Input: "[1]", ExpectedOutput: "1"}))
	submissions := newMemorySubmissionRepo()
	svc := NewSubmissionService(submissions, questions, scheduler, nil, validator.New(), zerolog.Nop())
	return svc, submissions, questions
}

func TestSubmitRequiresAuthentication(t *testing.T) {
	scheduler := &recordingScheduler{}
	svc, submissions, _ := newSubmissionFixture(scheduler)

	_, err := svc.Submit(context.Background(), 0, dto.SubmissionCreateRequest{QuestionID: 1, Code: "function a(){}", Language: "javascript"})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Empty(t, submissions.submissions)
	require.Empty(t, scheduler.enqueued)
}

func TestSubmitUnknownQuestionWritesNothing(t *testing.T) {
	scheduler := &recordingScheduler{}
	svc, submissions, _ := newSubmissionFixture(scheduler)

	_, err := svc.Submit(context.Background(), 7, dto.SubmissionCreateRequest{QuestionID: 9, Code: "function a(){}", Language: "javascript"})
	require.ErrorIs(t, err, ErrQuestionNotFound)
	require.Empty(t, submissions.submissions)
	require.Empty(t, scheduler.enqueued)
}

func TestSubmitQueuesPendingSubmission(t *testing.T) {
	scheduler := &recordingScheduler{}
	svc, submissions, questions := newSubmissionFixture(scheduler)

	created, err := svc.Submit(context.Background(), 7, dto.SubmissionCreateRequest{QuestionID: 1, Code: "function a(x){return x;}", Language: " javascript "})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, models.StatusTypePending, created.Status.Type())
	require.Equal(t, []uint{created.ID}, scheduler.enqueued)

	stored, err := submissions.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.True(t, stored.IsPending())
	require.Equal(t, "javascript", stored.Language)
	require.EqualValues(t, 7, stored.UserID)

	q, err := questions.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, q.Submissions)
}

func TestSubmitSchedulingFailureFinalizesSubmission(t *testing.T) {
	scheduler := &recordingScheduler{err: errors.New("queue down")}
	svc, submissions, _ := newSubmissionFixture(scheduler)

	_, err := svc.Submit(context.Background(), 7, dto.SubmissionCreateRequest{QuestionID: 1, Code: "function a(){}", Language: "javascript"})
	require.ErrorIs(t, err, ErrSchedulingFailed)

	require.Len(t, submissions.submissions, 1)
	for id := range submissions.submissions {
		failure, ok := submissions.status(id).(models.Failure)
		require.True(t, ok)
		require.Equal(t, "Failed to schedule grading", failure.Message)
	}
}

func TestSubmitValidatesPayload(t *testing.T) {
	svc, _, _ := newSubmissionFixture(&recordingScheduler{})

	_, err := svc.Submit(context.Background(), 7, dto.SubmissionCreateRequest{QuestionID: 1, Language: "javascript"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestGetSubmission(t *testing.T) {
	svc, _, _ := newSubmissionFixture(&recordingScheduler{})

	_, err := svc.Get(context.Background(), 123)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	created, err := svc.Submit(context.Background(), 7, dto.SubmissionCreateRequest{QuestionID: 1, Code: "function a(){}", Language: "javascript"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, models.StatusTypePending, got.Status.Type())
}

func TestListSubmissionsNewestFirst(t *testing.T) {
	svc, _, _ := newSubmissionFixture(&recordingScheduler{})

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(context.Background(), 7, dto.SubmissionCreateRequest{QuestionID: 1, Code: "function a(){}", Language: "javascript"})
		require.NoError(t, err)
	}
	_, err := svc.Submit(context.Background(), 8, dto.SubmissionCreateRequest{QuestionID: 1, Code: "function b(){}", Language: "javascript"})
	require.NoError(t, err)

	mine, err := svc.ListByUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, mine, 3)
	require.Greater(t, mine[0].ID, mine[1].ID)
	require.Greater(t, mine[1].ID, mine[2].ID)

	anonymous, err := svc.ListByUser(context.Background(), 0)
	require.NoError(t, err)
	require.NotNil(t, anonymous)
	require.Empty(t, anonymous)
}
