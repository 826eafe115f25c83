package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
)

const (
	// TokenHeader carries the shared secret required when the daemon
	// listens on TCP with server.token set.
	TokenHeader = "X-Medtimer-Token"
)

// tokenInterceptor rejects calls that do not present the configured token.
type tokenInterceptor struct {
	token string
}

// NewTokenInterceptor creates an interceptor that validates the token header
// on unary and streaming calls alike.
func NewTokenInterceptor(token string) connect.Interceptor {
	return &tokenInterceptor{token: token}
}

func (i *tokenInterceptor) valid(got string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(i.token)) == 1
}

func (i *tokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if !i.valid(req.Header().Get(TokenHeader)) {
			return nil, connect.NewError(connect.CodeUnauthenticated, nil)
		}
		return next(ctx, req)
	}
}

func (i *tokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *tokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if !i.valid(conn.RequestHeader().Get(TokenHeader)) {
			return connect.NewError(connect.CodeUnauthenticated, nil)
		}
		return next(ctx, conn)
	}
}
