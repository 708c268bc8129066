package domain

import "time"

// Status is the single user-facing outcome of a factory operation. The
// zero value is Good.
type Status struct {
	Err *Error
}

// Good reports whether the status represents success.
func (s Status) Good() bool { return s.Err == nil }

// Error implements the error interface so a Status can be returned
// anywhere an error is expected; returns the empty string for a good
// status.
func (s Status) Error() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// GoodStatus is the canonical successful status.
var GoodStatus = Status{}

// StatusFromError converts an error into a Status. A nil error yields
// GoodStatus; an *Error is carried through; anything else is wrapped as
// CodeInternal.
func StatusFromError(err error) Status {
	if err == nil {
		return GoodStatus
	}
	if e, ok := err.(*Error); ok {
		return Status{Err: e}
	}
	return Status{Err: NewError(CodeInternal, err.Error())}
}

// SessionSettings configures a Session: security policy/mode, timeout and
// locale. All fields are comparable, so SessionSettings equality (used by
// SessionTable.AcquireByMatch) is plain structural equality via ==.
type SessionSettings struct {
	SecurityPolicy string
	SecurityMode   string
	Timeout        time.Duration
	Locale         string
}

// SessionInformation is a read-only snapshot of a Session's state,
// returned by information queries under lock.
type SessionInformation struct {
	ConnectionID ConnectionID
	ServerURI    string
	Settings     SessionSettings
	Connected    bool
	LastKnown    string
}

// RequestTarget is one element of a logical request: the server it
// addresses, the session settings it requires, and its original index
// in the caller's request/result vectors.
type RequestTarget struct {
	Index    int
	ServerURI string
	Settings SessionSettings
	Payload  interface{}
}

// TargetOutcome classifies a single target's result. The zero value,
// TargetPending, marks a target that the Dispatcher never dispatched
// (excluded by the Mask, rejected with an asynchronous fan-out, or not
// reached because an earlier invocation failed and terminated the
// iteration); it must never be confused with TargetGood.
type TargetOutcome int

const (
	// TargetPending is the zero value: the target's invocation was never
	// attempted.
	TargetPending TargetOutcome = iota
	// TargetGood indicates the target was serviced successfully.
	TargetGood
	// TargetSubmitted indicates an asynchronous target was accepted; its
	// real outcome arrives later through the CallbackRouter.
	TargetSubmitted
	// TargetBad indicates the target failed.
	TargetBad
)

// TargetResult is the per-target outcome copied into a Result at the
// target's original index.
type TargetResult struct {
	Index   int
	Outcome TargetOutcome
	Err     *Error
	Data    interface{}
}

// Result accumulates per-target outcomes for one logical request,
// pre-sized and filled in at the original request indices.
type Result struct {
	Targets []TargetResult
}

// NewResult pre-sizes a Result to match a request with n targets.
func NewResult(n int) *Result {
	return &Result{Targets: make([]TargetResult, n)}
}

// Invocation is one server's share of a fanned-out request, produced by
// the InvocationFactory. Results is populated by the Session's
// InvokeRead/InvokeWrite, or by MarkSubmitted after InvokeCall, and
// copied back into the caller's Result by CopyInto.
type Invocation struct {
	ServerURI     string
	Settings      SessionSettings
	Targets       []RequestTarget
	TransactionID *TransactionID
	SessionInfo   SessionInformation
	Results       []TargetResult
}

// CopyInto copies each of inv.Results into result.Targets at the
// corresponding target's original index. Results and Targets must be the
// same length and in the same order.
func (inv *Invocation) CopyInto(result *Result) {
	for i, tr := range inv.Results {
		idx := inv.Targets[i].Index
		tr.Index = idx
		result.Targets[idx] = tr
	}
}

// MarkSubmitted fills inv.Results with TargetSubmitted outcomes for every
// target, used for the synchronous reply to an asynchronous invocation.
func (inv *Invocation) MarkSubmitted() {
	inv.Results = make([]TargetResult, len(inv.Targets))
	for i, t := range inv.Targets {
		inv.Results[i] = TargetResult{Index: t.Index, Outcome: TargetSubmitted}
	}
}

// ServiceKind discriminates the session-level services the factory can
// dispatch. A tagged-variant enumeration is simpler to express correctly
// in Go than compile-time generics keyed by a service tag, and needs no
// associated types.
type ServiceKind int

const (
	// ServiceRead is the synchronous read service.
	ServiceRead ServiceKind = iota
	// ServiceWrite is the synchronous write service.
	ServiceWrite
	// ServiceCall is the asynchronous method-call service.
	ServiceCall
)

func (k ServiceKind) String() string {
	switch k {
	case ServiceRead:
		return "Read"
	case ServiceWrite:
		return "Write"
	case ServiceCall:
		return "Call"
	default:
		return "Unknown"
	}
}

// ServiceDescriptor carries a service's name and asynchronous-ness, the
// discriminant that drives the Dispatcher's transaction-binding branch.
type ServiceDescriptor struct {
	Kind         ServiceKind
	Name         string
	Asynchronous bool
}

// ReadService is the built-in synchronous read service descriptor.
var ReadService = ServiceDescriptor{Kind: ServiceRead, Name: "Read", Asynchronous: false}

// WriteService is the built-in synchronous write service descriptor.
var WriteService = ServiceDescriptor{Kind: ServiceWrite, Name: "Write", Asynchronous: false}

// CallService is the built-in asynchronous method-call service descriptor.
var CallService = ServiceDescriptor{Kind: ServiceCall, Name: "Call", Asynchronous: true}
