package auth

import "context"

type contextKey struct{}

type requestIDKey struct{}

// Identity is who a request acts for. MemberID is zero for guests.
type Identity struct {
	MemberID int64
	Timezone string
	Language string
}

func (id Identity) IsGuest() bool {
	return id.MemberID == 0
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// MemberID returns the authenticated member, or 0 for guests.
func MemberID(ctx context.Context) int64 {
	id, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return id.MemberID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey{}).(string)
	return s
}
