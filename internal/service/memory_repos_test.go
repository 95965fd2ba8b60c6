package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/queue"
	"github.com/noah-isme/codepractice-api/internal/repository"
)

type memoryQuestionRepo struct {
	mu        sync.Mutex
	questions map[uint]models.Question
	likes     map[[2]uint]bool
	nextID    uint
}

func newMemoryQuestionRepo(questions ...models.Question) *memoryQuestionRepo {
	repo := &memoryQuestionRepo{questions: map[uint]models.Question{}, likes: map[[2]uint]bool{}}
	for _, q := range questions {
		q := q
		_ = repo.Create(context.Background(), &q)
	}
	return repo
}

func (r *memoryQuestionRepo) ListPublished(ctx context.Context) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Question
	for _, q := range r.questions {
		if q.IsPublished {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryQuestionRepo) ListByAuthor(ctx context.Context, authorID uint) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Question
	for _, q := range r.questions {
		if q.AuthorID == authorID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return q, nil
}

func (r *memoryQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if question.ID == 0 {
		r.nextID++
		question.ID = r.nextID
	} else if question.ID > r.nextID {
		r.nextID = question.ID
	}
	question.CreatedAt = time.Now()
	question.UpdatedAt = question.CreatedAt
	r.questions[question.ID] = *question
	return nil
}

func (r *memoryQuestionRepo) UpdateContent(ctx context.Context, question *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.questions[question.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Title = question.Title
	stored.Description = question.Description
	stored.TestCases = question.TestCases
	stored.IsPublished = question.IsPublished
	stored.Difficulty = question.Difficulty
	stored.Category = question.Category
	stored.UpdatedAt = time.Now()
	r.questions[question.ID] = stored
	return nil
}

func (r *memoryQuestionRepo) IncrementSubmissions(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Submissions++
	r.questions[id] = q
	return nil
}

func (r *memoryQuestionRepo) SetSuccessRate(ctx context.Context, id uint, rate float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.SuccessRate = &rate
	r.questions[id] = q
	return nil
}

func (r *memoryQuestionRepo) ToggleLike(ctx context.Context, questionID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[questionID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	key := [2]uint{questionID, userID}
	if r.likes[key] {
		delete(r.likes, key)
		q.Likes--
	} else {
		r.likes[key] = true
		q.Likes++
	}
	r.questions[questionID] = q
	return r.likes[key], nil
}

func (r *memoryQuestionRepo) HasLiked(ctx context.Context, questionID, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.likes[[2]uint{questionID, userID}], nil
}

type memorySubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	nextID      uint
	finalized   int
}

func newMemorySubmissionRepo() *memorySubmissionRepo {
	return &memorySubmissionRepo{submissions: map[uint]models.Submission{}}
}

func (r *memorySubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	submission.ID = r.nextID
	submission.CreatedAt = time.Now()
	r.submissions[submission.ID] = *submission
	return nil
}

func (r *memorySubmissionRepo) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *memorySubmissionRepo) ListByUser(ctx context.Context, userID uint) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Submission
	for _, s := range r.submissions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memorySubmissionRepo) Finalize(ctx context.Context, id uint, status models.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.submissions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if !s.IsPending() {
		return repository.ErrSubmissionFinalized
	}
	s.Status = models.NewStatusColumn(status)
	s.StatusType = status.Type()
	if success, ok := status.(models.Success); ok {
		runtime := success.RuntimeMs
		s.ExecutionTime = &runtime
	}
	r.submissions[id] = s
	r.finalized++
	return nil
}

func (r *memorySubmissionRepo) status(id uint) models.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.submissions[id].CurrentStatus()
}

type memoryCommentRepo struct {
	mu       sync.Mutex
	comments []models.Comment
}

func (r *memoryCommentRepo) ListByQuestion(ctx context.Context, questionID uint) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, c := range r.comments {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memoryCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uint(len(r.comments) + 1)
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

type recordingScheduler struct {
	mu       sync.Mutex
	enqueued []uint
	err      error
}

func (s *recordingScheduler) Enqueue(ctx context.Context, submissionID uint) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, submissionID)
	return nil
}

func (s *recordingScheduler) Start(ctx context.Context, handler queue.Handler) error { return nil }

func (s *recordingScheduler) Close() error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.StatusEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event queue.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
