package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/pkg/api"
)

// outcomeOK labels calls whose envelope reports success.
const outcomeOK = "ok"

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, user ID, duration and the envelope outcome.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty if pre-auth

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					slog.Warn("RPC error",
						"procedure", procedure,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"user_id", userID,
						"duration_ms", duration,
					)
				} else {
					slog.Error("RPC error",
						"procedure", procedure,
						"error", err,
						"user_id", userID,
						"duration_ms", duration,
					)
				}
				return resp, err
			}

			if outcome := outcomeOf(resp); outcome != outcomeOK {
				slog.Info("RPC rejected",
					"procedure", procedure,
					"code", outcome,
					"user_id", userID,
					"duration_ms", duration,
				)
			} else {
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
			}
			return resp, nil
		}
	}
}

// MetricsInterceptor records the count and latency of every RPC call.
func MetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			var outcome string
			if err != nil {
				outcome = connect.CodeOf(err).String()
			} else {
				outcome = outcomeOf(resp)
			}
			m.ObserveRPC(req.Spec().Procedure, outcome, time.Since(start))
			return resp, err
		}
	}
}

// outcomeOf reads the envelope's error code, or "ok" on success.
func outcomeOf(resp connect.AnyResponse) string {
	if resp == nil {
		return outcomeOK
	}
	o, ok := resp.Any().(api.Outcomer)
	if !ok {
		return outcomeOK
	}
	if success, code := o.Outcome(); !success {
		if code == "" {
			return "unknown"
		}
		return code
	}
	return outcomeOK
}
