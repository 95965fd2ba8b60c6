package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultCaseTimeout  = 2 * time.Second
	defaultMaxCallStack = 4096
)

var errCaseTimeout = errors.New("test case timed out")

// VMConfig groups limits for the in-process interpreter.
type VMConfig struct {
	CaseTimeout  time.Duration
	MaxCallStack int
	Logger       zerolog.Logger
}

// VMRunner evaluates solutions inside an embedded ECMAScript interpreter.
// The interpreter exposes no host objects apart from an inert console.
type VMRunner struct {
	cfg    VMConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewVMRunner constructs an interpreter backed runner.
func NewVMRunner(cfg VMConfig) *VMRunner {
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = defaultCaseTimeout
	}
	if cfg.MaxCallStack <= 0 {
		cfg.MaxCallStack = defaultMaxCallStack
	}

	logger := cfg.Logger.With().Str("component", "vm_runner").Logger()
	// The interpreter bounds time and stack depth but not heap growth.
	logger.Warn().
		Dur("case_timeout", cfg.CaseTimeout).
		Msg("vm runner has no memory ceiling; use the container runner for untrusted workloads")

	return &VMRunner{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/codepractice-api/pkg/sandbox"),
		logger: logger,
	}
}

// Run evaluates source against tc. The order of checks mirrors how a
// solution is loaded: source first, then test data, then the entry call.
func (r *VMRunner) Run(parent context.Context, source string, tc Case) (outcome Outcome, err error) {
	ctx, span := r.tracer.Start(parent, "sandbox.vm.run", trace.WithAttributes(
		attribute.Int("sandbox.source_bytes", len(source)),
	))
	defer span.End()

	started := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error().Interface("panic", recovered).Msg("interpreter panicked")
			outcome, err = Outcome{}, ErrUnknown()
		}
		outcome.Duration = time.Since(started)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observe("vm", started, outcome, err)
	}()

	program, parseErr := goja.Parse(sourceName, source)
	if parseErr != nil {
		return Outcome{}, Errorf(CodeRuntimeException, "%s", syntaxMessage(parseErr))
	}
	compiled, compileErr := goja.CompileAST(program, false)
	if compileErr != nil {
		return Outcome{}, Errorf(CodeRuntimeException, "%s", syntaxMessage(compileErr))
	}

	rt := newRuntime(r.cfg.MaxCallStack)

	timer := time.AfterFunc(r.cfg.CaseTimeout, func() { rt.Interrupt(errCaseTimeout) })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { rt.Interrupt(ctx.Err()) })
	defer stop()

	// Test data is decoded and the expected value encoded before the
	// solution runs, so the solution cannot alter either.
	jsonObj := rt.Get("JSON").ToObject(rt)
	parse, _ := goja.AssertFunction(jsonObj.Get("parse"))
	stringify, _ := goja.AssertFunction(jsonObj.Get("stringify"))

	args, inputErr := parse(jsonObj, rt.ToValue(tc.Input))
	var expectedText goja.Value
	expected, expectedErr := parse(jsonObj, rt.ToValue(tc.Expected))
	if expectedErr == nil {
		expectedText, expectedErr = stringify(jsonObj, expected)
	}

	if _, err := rt.RunProgram(compiled); err != nil {
		return Outcome{}, r.classify(err, CodeRuntimeException)
	}
	if inputErr != nil {
		return Outcome{}, r.parseFailure("input", inputErr)
	}
	if expectedErr != nil {
		return Outcome{}, r.parseFailure("expected output", expectedErr)
	}

	entry := entryName(program)
	if entry == "" {
		return Outcome{}, ErrNoFunctionFound()
	}
	fn, ok := goja.AssertFunction(rt.Get(entry))
	if !ok {
		return Outcome{}, Errorf(CodeRuntimeException, "%s is not a function", entry)
	}

	result, err := fn(goja.Undefined(), spreadArguments(args)...)
	if err != nil {
		return Outcome{}, r.classify(err, CodeRuntimeException)
	}

	actualText, err := stringify(jsonObj, result)
	if err != nil {
		return Outcome{}, r.classify(err, CodeRuntimeException)
	}

	return Outcome{Passed: actualText.StrictEquals(expectedText)}, nil
}

func newRuntime(maxCallStack int) *goja.Runtime {
	rt := goja.New()
	rt.SetMaxCallStackSize(maxCallStack)

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	console := rt.NewObject()
	for _, name := range []string{"log", "error", "warn", "info", "debug"} {
		_ = console.Set(name, noop)
	}
	_ = rt.Set("console", console)

	disableDynamicCode(rt)
	return rt
}

// disableDynamicCode removes eval and blocks the constructor of every
// function kind. Generator and async constructors are not globals, so they
// are reached through throwaway instances.
func disableDynamicCode(rt *goja.Runtime) {
	global := rt.GlobalObject()
	blocked := rt.ToValue(func(goja.FunctionCall) goja.Value {
		panic(rt.NewTypeError("dynamic code evaluation is disabled"))
	})

	if fnCtor, ok := global.Get("Function").(*goja.Object); ok {
		blockConstructor(fnCtor.Get("prototype"), blocked)
	}

	for _, sample := range []string{
		"(function* () {})",
		"(async function () {})",
		"(async function* () {})",
	} {
		instance, err := rt.RunString(sample)
		if err != nil {
			continue
		}
		if obj, ok := instance.(*goja.Object); ok {
			blockConstructor(obj.Prototype(), blocked)
		}
	}

	_ = global.Delete("eval")
	_ = global.Delete("Function")
}

func blockConstructor(proto goja.Value, blocked goja.Value) {
	obj, ok := proto.(*goja.Object)
	if !ok || obj == nil {
		return
	}
	_ = obj.DefineDataProperty("constructor", blocked, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
}

// spreadArguments turns a parsed JSON array into an argument list. Any other
// value is passed as the only argument.
func spreadArguments(value goja.Value) []goja.Value {
	obj, ok := value.(*goja.Object)
	if !ok || obj.ClassName() != "Array" {
		return []goja.Value{value}
	}

	length := int(obj.Get("length").ToInteger())
	args := make([]goja.Value, 0, length)
	for i := 0; i < length; i++ {
		args = append(args, obj.Get(strconv.Itoa(i)))
	}
	return args
}

func (r *VMRunner) parseFailure(field string, err error) *Error {
	classified := r.classify(err, CodeParseError)
	if classified.Code != CodeParseError {
		return classified
	}
	return Errorf(CodeParseError, "invalid %s: %s", field, classified.Message)
}

func (r *VMRunner) classify(err error, fallback ErrorCode) *Error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		switch reason := interrupted.Value().(type) {
		case error:
			if errors.Is(reason, errCaseTimeout) {
				return Errorf(CodeTimeout, "Execution timed out after %s", r.cfg.CaseTimeout)
			}
			if errors.Is(reason, context.DeadlineExceeded) {
				return Errorf(CodeTimeout, "Grading deadline exceeded")
			}
			return Errorf(CodeUnknown, "Execution cancelled: %v", reason)
		default:
			return ErrUnknown()
		}
	}

	if isStackOverflow(err) {
		return Errorf(CodeResourceExceeded, "Maximum call stack size exceeded")
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		if msg := errorMessage(exception.Value()); msg != "" {
			return &Error{Code: fallback, Message: msg}
		}
		return ErrUnknown()
	}

	return &Error{Code: fallback, Message: err.Error()}
}

// errorMessage returns the message of a thrown Error object. Thrown
// primitives carry no message.
func errorMessage(value goja.Value) string {
	obj, ok := value.(*goja.Object)
	if !ok || obj.ClassName() != "Error" {
		return ""
	}
	msg := obj.Get("message")
	if msg == nil || goja.IsUndefined(msg) || goja.IsNull(msg) {
		return ""
	}
	return msg.String()
}

func isStackOverflow(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "call stack size exceeded") || strings.Contains(msg, "stack overflow")
}

func syntaxMessage(err error) string {
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("SyntaxError: %s", syntaxErr.Message)
	}
	return fmt.Sprintf("SyntaxError: %s", err.Error())
}
