package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	dockerexec "github.com/noah-isme/codepractice-api/pkg/docker"
)

const (
	harnessFile = "harness.js"
	caseFile    = "case.json"
)

// harness runs inside the container. It loads the solution into a fresh
// vm context, decodes the test data and reports one JSON line on stdout.
const harness = `"use strict";
const fs = require("fs");
const vm = require("vm");

const testCase = JSON.parse(fs.readFileSync(__dirname + "/case.json", "utf8"));
const emit = (payload) => process.stdout.write(JSON.stringify(payload));
const messageOf = (err) => (err && typeof err.message === "string" && err.message !== "" ? err.message : null);

let stage = "source";
try {
  const noop = () => {};
  const context = vm.createContext(
    { console: { log: noop, error: noop, warn: noop, info: noop, debug: noop } },
    { codeGeneration: { strings: false, wasm: false } }
  );
  vm.runInContext(testCase.source, context, { timeout: testCase.timeoutMs, filename: "solution.js" });

  stage = "input";
  const args = JSON.parse(testCase.input);
  stage = "expected";
  const expected = JSON.stringify(JSON.parse(testCase.expected));

  if (!testCase.entry) {
    emit({ error: { code: "no_function_found", message: "No function found in code" } });
  } else {
    stage = "call";
    context.__args = Array.isArray(args) ? args : [args];
    const result = vm.runInContext(testCase.entry + ".apply(undefined, __args)", context, { timeout: testCase.timeoutMs });
    emit({ passed: JSON.stringify(result) === expected });
  }
} catch (err) {
  const message = messageOf(err);
  if (err && err.code === "ERR_SCRIPT_EXECUTION_TIMEOUT") {
    emit({ error: { code: "timeout", message: "Execution timed out after " + testCase.timeoutMs + "ms" } });
  } else if (message && message.includes("call stack size exceeded")) {
    emit({ error: { code: "resource_exceeded", message: "Maximum call stack size exceeded" } });
  } else if (stage === "input" || stage === "expected") {
    const field = stage === "input" ? "input" : "expected output";
    emit({ error: { code: "parse_error", message: "invalid " + field + ": " + (message || "Unknown error") } });
  } else if (message) {
    emit({ error: { code: "runtime_exception", message } });
  } else {
    emit({ error: { code: "unknown_error", message: "Unknown error" } });
  }
}
`

type harnessCase struct {
	Source    string `json:"source"`
	Entry     string `json:"entry"`
	Input     string `json:"input"`
	Expected  string `json:"expected"`
	TimeoutMs int64  `json:"timeoutMs"`
}

type harnessReport struct {
	Passed bool `json:"passed"`
	Error  *struct {
		Code    ErrorCode `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// ContainerConfig describes the container each test case runs in.
type ContainerConfig struct {
	Image         string
	CaseTimeout   time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	WorkspaceRoot string
	Logger        zerolog.Logger
}

// ContainerRunner evaluates every test case in its own short lived container
// with no network, a memory ceiling and a wall clock limit.
type ContainerRunner struct {
	executor dockerexec.Executor
	cfg      ContainerConfig
	logger   zerolog.Logger
}

// NewContainerRunner constructs a container backed runner.
func NewContainerRunner(executor dockerexec.Executor, cfg ContainerConfig) *ContainerRunner {
	if cfg.Image == "" {
		cfg.Image = "node:20-alpine"
	}
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = defaultCaseTimeout
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = os.TempDir()
	}

	return &ContainerRunner{
		executor: executor,
		cfg:      cfg,
		logger:   cfg.Logger.With().Str("component", "container_runner").Logger(),
	}
}

// Run evaluates source against tc inside a new container.
func (r *ContainerRunner) Run(ctx context.Context, source string, tc Case) (outcome Outcome, err error) {
	started := time.Now()
	defer func() {
		outcome.Duration = time.Since(started)
		observe("container", started, outcome, err)
	}()

	// A parse failure leaves entry empty; node then reports the syntax
	// error while loading the source.
	entry, _ := LocateEntry(source)

	workspace, err := os.MkdirTemp(r.cfg.WorkspaceRoot, "grading-")
	if err != nil {
		return Outcome{}, Errorf(CodeUnknown, "create workspace: %v", err)
	}
	defer os.RemoveAll(workspace)
	if err := os.Chmod(workspace, 0o755); err != nil {
		return Outcome{}, Errorf(CodeUnknown, "prepare workspace: %v", err)
	}

	payload, err := json.Marshal(harnessCase{
		Source:    source,
		Entry:     entry,
		Input:     tc.Input,
		Expected:  tc.Expected,
		TimeoutMs: r.cfg.CaseTimeout.Milliseconds(),
	})
	if err != nil {
		return Outcome{}, Errorf(CodeUnknown, "encode test case: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, caseFile), payload, 0o644); err != nil {
		return Outcome{}, Errorf(CodeUnknown, "write test case: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, harnessFile), []byte(harness), 0o644); err != nil {
		return Outcome{}, Errorf(CodeUnknown, "write harness: %v", err)
	}

	result, execErr := r.executor.Run(ctx, dockerexec.ExecutionRequest{
		Image:         r.cfg.Image,
		Cmd:           []string{"node", "--max-old-space-size=" + fmt.Sprint(maxOldSpace(r.cfg.MemoryLimitMB)), harnessFile},
		Timeout:       r.cfg.CaseTimeout + time.Second,
		Workspace:     workspace,
		MemoryLimitMB: r.cfg.MemoryLimitMB,
		CPUShares:     r.cfg.CPUShares,
	})
	if execErr != nil {
		r.logger.Error().Err(execErr).Msg("sandbox container failed")
		if ctx.Err() != nil {
			return Outcome{}, Errorf(CodeTimeout, "Grading deadline exceeded")
		}
		return Outcome{}, Errorf(CodeUnknown, "sandbox unavailable")
	}

	return decodeReport(result, r.cfg.CaseTimeout)
}

func decodeReport(result dockerexec.ExecutionResult, timeout time.Duration) (Outcome, error) {
	switch {
	case result.TimedOut:
		return Outcome{}, Errorf(CodeTimeout, "Execution timed out after %s", timeout)
	case result.OOMKilled:
		return Outcome{}, Errorf(CodeResourceExceeded, "Memory limit exceeded")
	}

	line := strings.TrimSpace(result.Stdout)
	if line == "" {
		if result.ExitCode != 0 {
			return Outcome{}, Errorf(CodeUnknown, "sandbox exited with code %d", result.ExitCode)
		}
		return Outcome{}, ErrUnknown()
	}

	var report harnessReport
	if err := json.Unmarshal([]byte(line), &report); err != nil {
		return Outcome{}, ErrUnknown()
	}
	if report.Error != nil {
		code := report.Error.Code
		if code == "" {
			code = CodeUnknown
		}
		return Outcome{}, &Error{Code: code, Message: report.Error.Message}
	}
	return Outcome{Passed: report.Passed}, nil
}

func maxOldSpace(memoryMB int64) int64 {
	if memoryMB <= 0 {
		return 128
	}
	if memoryMB <= 64 {
		return memoryMB / 2
	}
	return memoryMB - 32
}
