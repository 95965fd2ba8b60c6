package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "  abc-123 ")
	require.Equal(t, "abc-123", CorrelationIDFromContext(ctx))

	unchanged := WithCorrelationID(ctx, "   ")
	require.Equal(t, "abc-123", CorrelationIDFromContext(unchanged))

	require.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestMetricsHandlerExposesGradingCollectors(t *testing.T) {
	Gradings().WithLabelValues("success", "").Inc()
	GradingJobsEnqueued().WithLabelValues("local").Inc()

	app := fiber.New()
	app.Get("/metrics", MetricsHandler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "gradings_total")
	require.Contains(t, string(body), "grading_jobs_enqueued_total")
}
