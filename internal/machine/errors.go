package machine

import (
	"fmt"

	"coffee-machine/internal/menu"
)

// Code identifies why an operation was rejected.
type Code string

const (
	CodeMachineOff           Code = "machine_off"
	CodeDrinkNotFound        Code = "drink_not_found"
	CodeInsufficientResource Code = "insufficient_resource"
	CodeInsufficientPayment  Code = "insufficient_payment"
)

// Messages shown to customers.
const (
	MsgMachineOff          = "Machine is OFF"
	MsgDrinkNotAvailable   = "Drink not available"
	MsgInsufficientPayment = "Insufficient payment. Money refunded."
)

// Rejection is an expected, user-facing refusal. The machine state is never
// changed by a rejected operation.
type Rejection struct {
	Code     Code
	Resource menu.Resource // set for CodeInsufficientResource
	Message  string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Is matches rejections by code so callers can use the sentinels below with
// errors.Is regardless of the resource involved.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Code == r.Code
}

var (
	ErrMachineOff           = &Rejection{Code: CodeMachineOff, Message: MsgMachineOff}
	ErrDrinkNotFound        = &Rejection{Code: CodeDrinkNotFound, Message: MsgDrinkNotAvailable}
	ErrInsufficientResource = &Rejection{Code: CodeInsufficientResource, Message: "Sorry, not enough resources"}
	ErrInsufficientPayment  = &Rejection{Code: CodeInsufficientPayment, Message: MsgInsufficientPayment}
)

// InsufficientResource builds the rejection for a missing ingredient.
func InsufficientResource(r menu.Resource) *Rejection {
	return &Rejection{
		Code:     CodeInsufficientResource,
		Resource: r,
		Message:  fmt.Sprintf("Sorry, not enough %s", r),
	}
}
