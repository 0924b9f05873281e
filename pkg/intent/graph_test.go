package intent

import (
	"testing"

	"github.com/google/uuid"
)

func TestDependenciesSatisfied(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	statusByID := map[uuid.UUID]string{
		a: StatusCompleted,
		b: StatusActive,
	}

	satisfied := Intent{DependsOn: []uuid.UUID{a}}
	if !dependenciesSatisfied(satisfied, statusByID) {
		t.Error("expected dependency on a completed intent to be satisfied")
	}

	unsatisfied := Intent{DependsOn: []uuid.UUID{a, b}}
	if dependenciesSatisfied(unsatisfied, statusByID) {
		t.Error("expected dependency on an active intent to be unsatisfied")
	}

	noDeps := Intent{}
	if !dependenciesSatisfied(noDeps, statusByID) {
		t.Error("expected no dependencies to be trivially satisfied")
	}

	missing := Intent{DependsOn: []uuid.UUID{c}}
	if dependenciesSatisfied(missing, statusByID) {
		t.Error("expected dependency on an unknown intent to be unsatisfied")
	}
}

func TestStatusIndex(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	intents := []Intent{
		{ID: a, Status: StatusActive},
		{ID: b, Status: StatusCompleted},
	}
	idx := statusIndex(intents)
	if idx[a] != StatusActive || idx[b] != StatusCompleted {
		t.Errorf("unexpected index: %+v", idx)
	}
}
