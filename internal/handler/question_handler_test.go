package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type questionDetail struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Likes    int64  `json:"likes"`
	IsLiked  bool   `json:"is_liked"`
	Comments []struct {
		UserID  uint   `json:"user_id"`
		Content string `json:"content"`
	} `json:"comments"`
}

func getQuestion(t *testing.T, app *fiber.App, id, viewer uint) (int, questionDetail) {
	t.Helper()
	status, env := do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/questions/%d", id), viewer, nil)
	var detail questionDetail
	if status == fiber.StatusOK {
		require.NoError(t, json.Unmarshal(env.Data, &detail))
	}
	return status, detail
}

func TestQuestionLifecycle(t *testing.T) {
	app, _ := setupApp(t)
	id := createQuestion(t, app, 1, map[string]string{"input": "[1]", "expected_output": "1"})

	status, env := do(t, app, http.MethodGet, "/api/v1/questions", 0, nil)
	require.Equal(t, fiber.StatusOK, status)
	var listed []questionDetail
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)

	status, _ = do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/questions/%d", id), 2, map[string]interface{}{
		"title":       "Hijack",
		"description": "nope",
	})
	require.Equal(t, fiber.StatusForbidden, status)

	status, env = do(t, app, http.MethodPut, fmt.Sprintf("/api/v1/questions/%d", id), 1, map[string]interface{}{
		"title":        "Add numbers",
		"description":  "Add them",
		"test_cases":   []map[string]string{{"input": "[1,1]", "expected_output": "2"}},
		"is_published": true,
	})
	require.Equal(t, fiber.StatusOK, status, env.Message)

	status, detail := getQuestion(t, app, id, 0)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Add numbers", detail.Title)

	status, env = do(t, app, http.MethodGet, "/api/v1/questions/mine", 1, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)

	status, env = do(t, app, http.MethodGet, "/api/v1/questions/mine", 0, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.JSONEq(t, `[]`, string(env.Data))
}

func TestCreateQuestionRequiresUser(t *testing.T) {
	app, _ := setupApp(t)

	status, env := do(t, app, http.MethodPost, "/api/v1/questions", 0, map[string]interface{}{
		"title":       "Add",
		"description": "Add",
	})
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.False(t, env.Success)
}

func TestQuestionNotFound(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := getQuestion(t, app, 404, 0)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestToggleLikeAndComment(t *testing.T) {
	app, _ := setupApp(t)
	id := createQuestion(t, app, 1)

	status, env := do(t, app, http.MethodPost, fmt.Sprintf("/api/v1/questions/%d/like", id), 2, nil)
	require.Equal(t, fiber.StatusOK, status)
	var like struct {
		Liked bool `json:"liked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &like))
	require.True(t, like.Liked)

	status, env = do(t, app, http.MethodPost, fmt.Sprintf("/api/v1/questions/%d/comments", id), 2, map[string]string{
		"content": "Nice one <script>alert(1)</script>",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)

	status, detail := getQuestion(t, app, id, 2)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 1, detail.Likes)
	require.True(t, detail.IsLiked)
	require.Len(t, detail.Comments, 1)
	require.Equal(t, "Nice one", detail.Comments[0].Content)

	status, _ = do(t, app, http.MethodPost, fmt.Sprintf("/api/v1/questions/%d/like", id), 2, nil)
	require.Equal(t, fiber.StatusOK, status)

	_, detail = getQuestion(t, app, id, 2)
	require.EqualValues(t, 0, detail.Likes)
	require.False(t, detail.IsLiked)

	status, env = do(t, app, http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/comments", id), 0, nil)
	require.Equal(t, fiber.StatusOK, status)
	var comments []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 1)

	status, _ = do(t, app, http.MethodPost, fmt.Sprintf("/api/v1/questions/%d/comments", id), 0, map[string]string{"content": "anon"})
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupApp(t)

	status, env := do(t, app, http.MethodGet, "/api/v1/health", 0, nil)
	require.Equal(t, fiber.StatusOK, status)

	var health struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "ok", health.Checks["database"])
}
