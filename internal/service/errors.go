package service

import (
	"fmt"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/mmynk/signin/internal/errdef"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest checks the validate tags of a request message.
func validateRequest(msg any) error {
	if err := validate.Struct(msg); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return nil
}

// toConnectError maps errdef kinds to Connect codes.
func toConnectError(err error) error {
	switch {
	case errdef.IsNotFound(err):
		return connect.NewError(connect.CodeNotFound, err)
	case errdef.IsEventNotActive(err), errdef.IsInvalidState(err):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errdef.IsConflict(err):
		return connect.NewError(connect.CodeAborted, err)
	case errdef.IsBadRequest(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalidArgument(format string, a ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, a...))
}
