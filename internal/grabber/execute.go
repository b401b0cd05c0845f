package grabber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	maxInvokeRetries = 5
	backoffBase      = 200 * time.Millisecond
	backoffMax       = 10 * time.Second
)

// throttlingErrorCodes are the AWS API error codes that mean "back off and
// retry", as opposed to a permanent failure worth surfacing immediately.
var throttlingErrorCodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"RequestLimitExceeded":                   {},
	"TooManyRequestsException":               {},
	"ProvisionedThroughputExceededException": {},
}

func isThrottlingError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, throttled := throttlingErrorCodes[apiErr.ErrorCode()]
	return throttled
}

// Executor runs resolved plans against the underlying cloud service, rate
// limiting outbound calls and resolving independent arguments concurrently.
// The planner itself never executes a call; execution only happens once the
// completion engine or a client has chosen a plan to run.
type Executor struct {
	limiter *rate.Limiter
	cache   map[string][]any
}

// NewExecutor builds an Executor whose outbound call rate is bounded by rps
// requests per second with the given burst allowance.
func NewExecutor(rps float64, burst int) *Executor {
	return &Executor{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		cache:   make(map[string][]any),
	}
}

// Execute evaluates a resolved Call-kind Arg, recursively executing every
// CallOutput-typed argument, then calls the underlying operation with
// pagination enabled and returns the raw pages. A CallOutput argument that
// yields several values is passed to that one call as a single MultiArg
// binding; no Cartesian product over multi-valued args is taken. Output
// paths are applied by ExecuteOutput, not here.
func (e *Executor) Execute(ctx context.Context, call *Arg) ([]any, error) {
	if call == nil || call.Kind != ArgCall {
		return nil, fmt.Errorf("grabber: execute requires a resolved Call arg")
	}

	resolvedBindings, err := e.resolveBindings(ctx, call.BoundArgs)
	if err != nil {
		return nil, err
	}

	cacheKey := call.Method.Name + ":" + resolvedBindings.Key()
	if cached, ok := e.cache[cacheKey]; ok {
		return cached, nil
	}

	var results []any
	pageToken := ""
	for {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("grabber: rate limiter wait: %w", err)
		}

		page, next, err := e.invokeWithBackoff(ctx, call.Method, resolvedBindings, pageToken)
		if err != nil {
			return nil, fmt.Errorf("grabber: invoke %s: %w", call.Method.Name, err)
		}
		results = append(results, page)

		if next == "" {
			break
		}
		pageToken = next
	}

	e.cache[cacheKey] = results
	return results, nil
}

// invokeWithBackoff calls method.Invoke, retrying on a throttling error with
// exponential backoff and jitter up to maxInvokeRetries times.
func (e *Executor) invokeWithBackoff(ctx context.Context, method *Method, args *Args, pageToken string) (any, string, error) {
	var lastErr error
	for retries := 0; retries <= maxInvokeRetries; retries++ {
		page, next, err := method.Invoke(args, pageToken)
		if err == nil {
			return page, next, nil
		}
		lastErr = err
		if !isThrottlingError(err) || retries == maxInvokeRetries {
			return nil, "", err
		}

		select {
		case <-time.After(BackoffDelay(retries+1, backoffBase, backoffMax)):
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	return nil, "", lastErr
}

// resolveBindings resolves every CallOutput-typed argument inside args
// concurrently, bounded by the executor's rate limiter on the underlying
// calls each one triggers.
func (e *Executor) resolveBindings(ctx context.Context, args *Args) (*Args, error) {
	if args == nil {
		return NewArgs(nil), nil
	}

	resolved := make(map[string]*Arg, len(args.order))
	g, gctx := errgroup.WithContext(ctx)

	for _, name := range args.order {
		name := name
		arg := args.bindings[name]
		g.Go(func() error {
			out, err := e.resolveArg(gctx, arg)
			if err != nil {
				return err
			}
			resolved[name] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewArgs(resolved), nil
}

func (e *Executor) resolveArg(ctx context.Context, arg *Arg) (*Arg, error) {
	if arg == nil {
		return nil, nil
	}

	switch arg.Kind {
	case ArgStatic, ArgMulti:
		return arg, nil

	case ArgCall:
		if _, err := e.Execute(ctx, arg); err != nil {
			return nil, err
		}
		return arg, nil

	case ArgCallOutput:
		values, err := e.ExecuteOutput(ctx, arg)
		if err != nil {
			return nil, err
		}
		if len(values) == 1 {
			return StaticArg(values[0]), nil
		}
		strValues := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.(string); ok {
				strValues = append(strValues, s)
			}
		}
		return MultiArg(strValues), nil

	default:
		return arg, nil
	}
}

// ExecuteOutput runs the call backing a resolved CallOutput arg and walks
// each returned page with the output path, yielding scalar values.
func (e *Executor) ExecuteOutput(ctx context.Context, out *Arg) ([]any, error) {
	if out == nil || out.Kind != ArgCallOutput {
		return nil, fmt.Errorf("grabber: execute-output requires a resolved CallOutput arg")
	}

	pages, err := e.Execute(ctx, out.Call)
	if err != nil {
		return nil, err
	}

	var values []any
	for _, page := range pages {
		values = append(values, walkOutputPath(page, out.OutputPath.Segments())...)
	}
	return values, nil
}

// walkOutputPath applies an output path to a decoded page value, walking
// structures field-by-field (via a map[string]any view) and iterating at
// each "*" segment over a slice.
func walkOutputPath(value any, segments []string) []any {
	if len(segments) == 0 {
		return []any{value}
	}

	seg := segments[0]
	rest := segments[1:]

	if seg == starSegment {
		items, ok := value.([]any)
		if !ok {
			return nil
		}
		var out []any
		for _, item := range items {
			out = append(out, walkOutputPath(item, rest)...)
		}
		return out
	}

	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	next, ok := m[seg]
	if !ok {
		return nil
	}
	return walkOutputPath(next, rest)
}
