// Package notice holds the reconciliation core: it turns repeated appointment
// snapshots into at-most-once notification decisions, backed by the persisted
// notice ledger. Classification, reconciliation and reminder matching are all
// pure with respect to everything except ledger reads.
package notice

// Type is the category of outbound message. The ledger keyspace is
// partitioned by it: the same appointment id keeps an independent ledger row
// per notice type.
type Type string

const (
	TypeConfirmation Type = "confirmation"
	TypeCancellation Type = "cancellation"

	// Reminder variants. More specific variants must come before the
	// catch-all in the rule list; order is part of the contract.
	TypeReminderLaser      Type = "reminder:laser-72h"
	TypeReminderUltrasound Type = "reminder:ultrasound-24h"
	TypeReminderDefault    Type = "reminder:default-24h"
)

// Class is the outcome of snapshot classification.
type Class int

const (
	ClassIgnore Class = iota
	ClassConfirmation
	ClassCancellation
)

func (c Class) String() string {
	switch c {
	case ClassConfirmation:
		return "confirmation"
	case ClassCancellation:
		return "cancellation"
	default:
		return "ignore"
	}
}

// Decision is the reconciler's verdict for one candidate snapshot.
type Decision int

const (
	// DecisionNew means no notice of this type was ever sent for the id.
	DecisionNew Decision = iota
	// DecisionDuplicate means the ledger already covers this exact state.
	DecisionDuplicate
	// DecisionReschedule means the stored date or time differs.
	DecisionReschedule
	// DecisionRetype means only the consultation type changed.
	DecisionRetype
	// DecisionReactivation means a confirmed snapshot reappeared after a
	// cancellation notice was sent for the same id.
	DecisionReactivation
	// DecisionNeedsData means the record lacks a usable phone, date or time
	// and must be skipped without touching the ledger.
	DecisionNeedsData
)

func (d Decision) String() string {
	switch d {
	case DecisionNew:
		return "new"
	case DecisionDuplicate:
		return "duplicate"
	case DecisionReschedule:
		return "reschedule"
	case DecisionRetype:
		return "retype"
	case DecisionReactivation:
		return "reactivation"
	case DecisionNeedsData:
		return "needs_data"
	default:
		return "unknown"
	}
}
