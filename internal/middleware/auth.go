package middleware

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/signin/internal/auth"
	"github.com/mmynk/signin/pkg/api/apiconnect"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for the authenticated caller's claims.
const ClaimsKey contextKey = "claims"

// Access is the minimum privilege a procedure requires.
type Access int

const (
	// Open procedures are served to anyone, e.g. scan kiosks.
	Open Access = iota
	// Member procedures need any valid token.
	Member
	// Mentor procedures need a mentor or admin token.
	Mentor
	// Admin procedures need an admin token.
	Admin
)

func (a Access) String() string {
	switch a {
	case Open:
		return "open"
	case Member:
		return "member"
	case Mentor:
		return "mentor"
	default:
		return "admin"
	}
}

var procedureAccess = map[string]Access{
	apiconnect.AttendanceServiceScanProcedure:             Open,
	apiconnect.AttendanceServiceCurrentlyPresentProcedure: Open,
	apiconnect.AttendanceServiceAutoloadEventProcedure:    Open,
	apiconnect.AttendanceServiceSignInProcedure:           Member,
	apiconnect.AttendanceServiceSignOutProcedure:          Member,
	apiconnect.RegistryServiceRegisterForBlockProcedure:   Member,

	apiconnect.AttendanceServiceForceCloseProcedure:       Mentor,
	apiconnect.AttendanceServiceDiscardExpiredProcedure:   Mentor,
	apiconnect.AttendanceServiceEventStatsProcedure:       Mentor,
	apiconnect.RegistryServiceCreateEventTypeProcedure:    Mentor,
	apiconnect.RegistryServiceCreateEventProcedure:        Mentor,
	apiconnect.RegistryServiceUpdateEventProcedure:        Mentor,
	apiconnect.RegistryServiceGetEventProcedure:           Mentor,
	apiconnect.RegistryServiceListEventsProcedure:         Mentor,
	apiconnect.RegistryServiceCreateWeeklyEventsProcedure: Mentor,
	apiconnect.RegistryServiceCreateEventBlockProcedure:   Mentor,
	apiconnect.RegistryServiceListEventBlocksProcedure:    Mentor,

	apiconnect.RegistryServiceDeleteEventProcedure: Admin,
}

// AccessFor returns the access level of a procedure. Procedures without an
// explicit rule, including every funds and maintenance call, are Admin.
func AccessFor(procedure string) Access {
	if a, ok := procedureAccess[procedure]; ok {
		return a
	}
	return Admin
}

// Allows reports whether claims satisfy the access level. Admins satisfy
// every level.
func (a Access) Allows(claims *auth.Claims) bool {
	if a == Open {
		return true
	}
	if claims == nil {
		return false
	}
	caps := claims.Capabilities
	switch a {
	case Member:
		return true
	case Mentor:
		return caps.Mentor || caps.Admin
	default:
		return caps.Admin
	}
}

// GetClaims extracts the caller's claims from the context, nil if anonymous.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// GetMemberID extracts the caller's member ID from the context.
// Returns empty string if not found.
func GetMemberID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.MemberID
	}
	return ""
}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// Authorize returns an interceptor that validates the bearer token when one
// is sent and enforces the procedure's access level. With disabled set every
// call is let through, but a valid token still identifies the caller.
func Authorize(jwtManager *auth.JWTManager, disabled bool) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			access := AccessFor(req.Spec().Procedure)

			var claims *auth.Claims
			if header := req.Header().Get("Authorization"); header != "" {
				tokenString, err := bearerToken(header)
				if err == nil && jwtManager == nil {
					err = auth.ErrInvalidToken
				}
				if err != nil {
					return nil, connect.NewError(connect.CodeUnauthenticated, err)
				}
				claims, err = jwtManager.Validate(tokenString)
				if err != nil {
					return nil, connect.NewError(connect.CodeUnauthenticated, err)
				}
				ctx = WithClaims(ctx, claims)
			}

			if disabled || access.Allows(claims) {
				return next(ctx, req)
			}
			if claims == nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}
			return nil, connect.NewError(connect.CodePermissionDenied,
				fmt.Errorf("%s access required", access))
		}
	}
}

func bearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", auth.ErrInvalidToken
	}
	return parts[1], nil
}
