package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/config"
	"github.com/noah-isme/codepractice-api/internal/database"
	"github.com/noah-isme/codepractice-api/internal/handler"
	"github.com/noah-isme/codepractice-api/internal/queue"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/internal/router"
	"github.com/noah-isme/codepractice-api/internal/service"
	"github.com/noah-isme/codepractice-api/pkg/sandbox"
)

const testUserHeader = "X-Test-User"

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	cache := service.NewQuestionCache(nil, time.Minute, logger)
	stats := service.NewStatsService(questionRepo, cache, logger)
	runner := sandbox.NewVMRunner(sandbox.VMConfig{CaseTimeout: time.Second, Logger: logger})
	grading := service.NewGradingService(submissionRepo, questionRepo, runner, stats, nil, logger, service.GradingConfig{})

	scheduler := queue.NewLocalScheduler(2, 16, logger)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx, grading.Grade))
	t.Cleanup(func() {
		_ = scheduler.Close()
		cancel()
	})

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", SubmitRateLimit: 100}, router.Dependencies{
		QuestionHandler:   handler.NewQuestionHandler(service.NewQuestionService(questionRepo, commentRepo, cache, validate, logger), logger),
		CommentHandler:    handler.NewCommentHandler(service.NewCommentService(commentRepo, questionRepo, validate, logger), logger),
		SubmissionHandler: handler.NewSubmissionHandler(service.NewSubmissionService(submissionRepo, questionRepo, scheduler, cache, validate, logger), logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get(testUserHeader); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				require.NoError(t, err)
				c.Locals("user_id", uint(id))
			}
			return c.Next()
		},
		DB: db,
	})

	return app, db
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func do(t *testing.T, app *fiber.App, method, path string, userID uint, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set(testUserHeader, strconv.FormatUint(uint64(userID), 10))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func createQuestion(t *testing.T, app *fiber.App, authorID uint, cases ...map[string]string) uint {
	t.Helper()

	status, env := do(t, app, http.MethodPost, "/api/v1/questions", authorID, map[string]interface{}{
		"title":        "Add",
		"description":  "Add the arguments",
		"test_cases":   cases,
		"is_published": true,
		"difficulty":   "easy",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created.ID
}

type submissionView struct {
	ID            uint   `json:"id"`
	ExecutionTime *int64 `json:"execution_time"`
	Status        struct {
		Type        string `json:"type"`
		PassedTests int    `json:"passedTests"`
		TotalTests  int    `json:"totalTests"`
		Message     string `json:"message"`
		Code        string `json:"code"`
	} `json:"status"`
	Question *struct {
		Title string `json:"title"`
	} `json:"question"`
}

func waitForTerminal(t *testing.T, app *fiber.App, id uint) submissionView {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		status, env := do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/submissions/%d", id), 0, nil)
		require.Equal(t, fiber.StatusOK, status)

		var view submissionView
		require.NoError(t, json.Unmarshal(env.Data, &view))
		if view.Status.Type != "pending" {
			return view
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("submission %d still pending", id)
	return submissionView{}
}
