package publisher

import (
	"context"
	"time"

	id "barangay/pkg/domain"
	"barangay/pkg/requestcontext"
)

func requestContext(ctx context.Context, userID id.UserID, now time.Time) context.Context {
	ctx = requestcontext.WithIdentity(ctx, userID, "admin@brgy.ph", requestcontext.RoleAdmin)
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "test-agent")
	return requestcontext.WithTime(ctx, now)
}
