package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusColumnEncoding(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		json   string
	}{
		{name: "pending", status: Pending{}, json: `{"type":"pending"}`},
		{
			name:   "success",
			status: Success{PassedTests: 2, TotalTests: 3, RuntimeMs: 41},
			json:   `{"type":"success","passedTests":2,"totalTests":3,"runtime":41}`,
		},
		{
			name:   "success with zero tests keeps its fields",
			status: Success{},
			json:   `{"type":"success","passedTests":0,"totalTests":0,"runtime":0}`,
		},
		{
			name:   "error",
			status: Failure{Message: "No function found in code", Code: "no_function_found"},
			json:   `{"type":"error","message":"No function found in code","code":"no_function_found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := json.Marshal(NewStatusColumn(tt.status))
			require.NoError(t, err)
			require.JSONEq(t, tt.json, string(encoded))

			value, err := NewStatusColumn(tt.status).Value()
			require.NoError(t, err)

			var scanned StatusColumn
			require.NoError(t, scanned.Scan(value))
			require.Equal(t, tt.status, scanned.Status)
		})
	}
}

func TestUnmarshalStatusRejectsIncompleteVariants(t *testing.T) {
	for _, payload := range []string{
		`{"type":"success","passedTests":1}`,
		`{"type":"error"}`,
		`{"type":"running"}`,
		`not json`,
	} {
		_, err := UnmarshalStatus([]byte(payload))
		require.Error(t, err, payload)
	}
}

func TestStatusColumnScanNullIsPending(t *testing.T) {
	var column StatusColumn
	require.NoError(t, column.Scan(nil))
	require.Equal(t, Pending{}, column.Status)
	require.Error(t, column.Scan(42))
}

func TestSuccessRate(t *testing.T) {
	rate, ok := Success{PassedTests: 2, TotalTests: 3}.SuccessRate()
	require.True(t, ok)
	require.InDelta(t, 0.6667, rate, 0.0001)

	_, ok = Success{}.SuccessRate()
	require.False(t, ok)
}

func TestSubmissionPendingUntilFinalized(t *testing.T) {
	submission := NewPendingSubmission(1, 2, "function f() {}", "javascript")
	require.True(t, submission.IsPending())
	require.Equal(t, StatusTypePending, submission.StatusType)

	submission.Status = NewStatusColumn(Failure{Message: "boom"})
	require.False(t, submission.IsPending())

	var empty Submission
	require.Equal(t, Pending{}, empty.CurrentStatus())
}
