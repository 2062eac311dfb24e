package core

import (
	"errors"
	"testing"

	. "github.com/firstpersontravel/charter-sub005/util/testutil"
)

func TestIfBasics(t *testing.T) {
	e := NewEvaluator(testRegistry(t))
	ac := testContext(`{"a":true,"b":false}`)

	tests := []struct {
		name string
		cond interface{}
		want bool
	}{
		{"absent", nil, true},
		{"empty and", `{"op":"and","items":[]}`, true},
		{"empty or", `{"op":"or","items":[]}`, false},
		{"not without item", `{"op":"not"}`, true},
		{"not false", `{"op":"not","item":{"op":"istrue","ref":"b"}}`, true},
		{"not true", `{"op":"not","item":{"op":"istrue","ref":"a"}}`, false},
		{"or one", `{"op":"or","items":[{"op":"istrue","ref":"b"},{"op":"istrue","ref":"a"}]}`, true},
		{"missing ref", `{"op":"istrue","ref":"nope.nada"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.If(ac, MustParseCondition(Dwimjs(tt.cond)))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIfCombinators(t *testing.T) {
	e := NewEvaluator(testRegistry(t))
	cond := MustParseCondition(Dwimjs(`{"op":"and","items":[
		{"op":"istrue","ref":"a"},
		{"op":"not","item":{"op":"istrue","ref":"b"}}]}`))

	if ok, err := e.If(testContext(`{"a":true,"b":false}`), cond); err != nil || !ok {
		t.Fatal(ok, err)
	}
	if ok, err := e.If(testContext(`{"a":true,"b":true}`), cond); err != nil || ok {
		t.Fatal(ok, err)
	}
}

func TestIfUnknownOp(t *testing.T) {
	e := NewEvaluator(testRegistry(t))
	_, err := e.If(testContext(`{}`), MustParseCondition(Dwimjs(`{"op":"unknown_op"}`)))

	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("expected an EvaluationError, got %v", err)
	}
	if ee.Op != "unknown_op" {
		t.Fatal(ee.Op)
	}
	if !contains(ee.Valid, "istrue") || !contains(ee.Valid, "and") {
		t.Fatal(ee.Valid)
	}
}

func TestIfUnknownOpNested(t *testing.T) {
	e := NewEvaluator(testRegistry(t))
	cond := MustParseCondition(Dwimjs(`{"op":"or","items":[{"op":"istrue","ref":"b"},{"op":"bogus"}]}`))
	if _, err := e.If(testContext(`{}`), cond); err == nil {
		t.Fatal("expected an error")
	}
}

func TestIfNoRegistry(t *testing.T) {
	e := NewEvaluator(nil)
	if _, err := e.If(testContext(`{}`), MustParseCondition(Dwimjs(`{"op":"istrue","ref":"a"}`))); err != NoRegistry {
		t.Fatal(err)
	}
}
