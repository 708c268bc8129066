// Package types provides the public value types of the session factory,
// re-exported from the internal domain package the way the teacher's
// pkg/types mirrors its internal domain's tool and session shapes for
// external callers.
package types

import "github.com/opcua-go/sessionfactory/internal/domain"

// Value types below are plain aliases rather than field-for-field
// copies: unlike the teacher's domain.ClientSession (which carries
// protocol-internal fields a public caller must never see), this
// factory's domain types already describe nothing but the public
// contract, so there is nothing to strip before exposing them.
type (
	ConnectionID            = domain.ConnectionID
	TransactionID           = domain.TransactionID
	RequestHandle           = domain.RequestHandle
	SessionSettings         = domain.SessionSettings
	SessionInformation      = domain.SessionInformation
	EndpointDescription     = domain.EndpointDescription
	SubscriptionInformation = domain.SubscriptionInformation

	Status        = domain.Status
	TargetOutcome  = domain.TargetOutcome
	TargetResult   = domain.TargetResult
	RequestTarget  = domain.RequestTarget
	Result         = domain.Result

	ServiceKind       = domain.ServiceKind
	ServiceDescriptor = domain.ServiceDescriptor

	RequestKind             = domain.RequestKind
	Request                 = domain.Request
	BaseSessionRequest      = domain.BaseSessionRequest
	BaseSubscriptionRequest = domain.BaseSubscriptionRequest

	Mask = domain.Mask

	ClientInterface = domain.ClientInterface
)

// Outcome, kind and request-kind constants, re-exported for callers that
// only import pkg/types.
const (
	TargetPending   = domain.TargetPending
	TargetGood      = domain.TargetGood
	TargetSubmitted = domain.TargetSubmitted
	TargetBad       = domain.TargetBad

	ServiceRead  = domain.ServiceRead
	ServiceWrite = domain.ServiceWrite
	ServiceCall  = domain.ServiceCall

	SessionRequestKind      = domain.SessionRequestKind
	SubscriptionRequestKind = domain.SubscriptionRequestKind
)

var (
	// ReadService is the built-in synchronous read service descriptor.
	ReadService = domain.ReadService
	// WriteService is the built-in synchronous write service descriptor.
	WriteService = domain.WriteService
	// CallService is the built-in asynchronous method-call service descriptor.
	CallService = domain.CallService

	// GoodStatus is the canonical successful status.
	GoodStatus = domain.GoodStatus
)

// NewResult pre-sizes a Result to match a request with n targets.
func NewResult(n int) *Result { return domain.NewResult(n) }

// NewMask builds a Mask containing exactly the given target indices.
func NewMask(indices ...int) Mask { return domain.NewMask(indices...) }

// AllMask builds a Mask selecting every index in [0, n).
func AllMask(n int) Mask { return domain.AllMask(n) }
