package storage

import (
	"fmt"

	"github.com/julianstephens/restreak/internal/errors"
	"github.com/julianstephens/restreak/internal/models"
)

// Field names a patchable habit field. Values match the document field names.
type Field string

const (
	FieldCompletedDates Field = "completedDates"
	FieldStreak         Field = "streak"
)

type OpKind int

const (
	OpSet OpKind = iota
	OpAddToSet
	OpRemoveFromSet
)

func (k OpKind) String() string {
	switch k {
	case OpAddToSet:
		return "add_to_set"
	case OpRemoveFromSet:
		return "remove_from_set"
	default:
		return "set"
	}
}

// FieldOp is one field update. Set operations carry a single element.
type FieldOp struct {
	Field Field
	Kind  OpKind
	Value any
}

// Patch is an ordered list of field updates applied atomically.
type Patch []FieldOp

func Set(f Field, v any) FieldOp { return FieldOp{Field: f, Kind: OpSet, Value: v} }
func AddToSet(f Field, v string) FieldOp { return FieldOp{Field: f, Kind: OpAddToSet, Value: v} }
func RemoveFromSet(f Field, v string) FieldOp { return FieldOp{Field: f, Kind: OpRemoveFromSet, Value: v} }

// Validate checks that every op targets a known field with a value of the right type.
func (p Patch) Validate() error {
	for _, op := range p {
		switch op.Field {
		case FieldCompletedDates:
			if op.Kind == OpSet {
				if _, ok := op.Value.([]string); !ok {
					return errors.Invalid("patch", "completedDates value", fmt.Errorf("set needs []string, got %T", op.Value))
				}
				continue
			}
			if _, ok := op.Value.(string); !ok {
				return errors.Invalid("patch", "completedDates value", fmt.Errorf("%s needs string, got %T", op.Kind, op.Value))
			}
		case FieldStreak:
			if op.Kind != OpSet {
				return errors.Invalid("patch", "streak op", fmt.Errorf("streak only supports set, got %s", op.Kind))
			}
			if _, ok := op.Value.(int); !ok {
				return errors.Invalid("patch", "streak value", fmt.Errorf("set needs int, got %T", op.Value))
			}
		default:
			return errors.Invalid("patch", "field", fmt.Errorf("unknown field %q", op.Field))
		}
	}
	return nil
}

// Apply returns h with p applied. Backends that cannot express set ops
// natively read, apply and write back inside one transaction.
func (p Patch) Apply(h models.Habit) (models.Habit, error) {
	if err := p.Validate(); err != nil {
		return h, err
	}
	out := h.Clone()
	for _, op := range p {
		switch op.Field {
		case FieldCompletedDates:
			switch op.Kind {
			case OpSet:
				out.CompletedDates = models.NormalizeDates(op.Value.([]string))
			case OpAddToSet:
				out.CompletedDates = models.NormalizeDates(append(out.CompletedDates, op.Value.(string)))
			case OpRemoveFromSet:
				out.CompletedDates = removeString(out.CompletedDates, op.Value.(string))
			}
		case FieldStreak:
			out.Streak = op.Value.(int)
		}
	}
	return out, nil
}

func removeString(in []string, v string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
