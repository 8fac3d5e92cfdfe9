package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKeyspaceSetGetDelete(t *testing.T) {
	ks := NewKeyspace()

	ks.Set("alice", json.RawMessage(`{"score":5}`))
	ks.Set("zero", json.RawMessage(`0`))

	if got, ok := ks.Get("alice"); !ok || string(got) != `{"score":5}` {
		t.Fatalf("Get(alice) = %s, %v", got, ok)
	}

	// Falsy values are present like any other value.
	if !ks.Has("zero") {
		t.Error("Has(zero) = false, want true")
	}

	if !ks.Delete("alice") {
		t.Error("Delete(alice) = false, want true")
	}
	if ks.Delete("alice") {
		t.Error("second Delete(alice) = true, want false")
	}
	if ks.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ks.Len())
	}
}

func TestKeyspaceCloneIsIndependent(t *testing.T) {
	ks := NewKeyspace()
	ks.Set("a", json.RawMessage(`1`))
	ks.Set("b", json.RawMessage(`2`))

	clone := ks.Clone()
	clone.Set("a", json.RawMessage(`100`))
	clone.Delete("b")
	clone.Set("c", json.RawMessage(`3`))

	if got, _ := ks.Get("a"); string(got) != `1` {
		t.Errorf("original a = %s, want 1", got)
	}
	if !ks.Has("b") || ks.Has("c") {
		t.Errorf("original keys changed: %v", ks.Keys(""))
	}
	if diff := cmp.Diff([]string{"a", "c"}, clone.Keys("")); diff != "" {
		t.Errorf("clone keys mismatch (-want +got):\n%s", diff)
	}
}

func TestKeyspaceKeysPrefix(t *testing.T) {
	ks := NewKeyspace()
	for _, k := range []string{"user:2", "admin", "user:1", "userx", "zed"} {
		ks.Set(k, json.RawMessage(`null`))
	}

	if diff := cmp.Diff([]string{"admin", "user:1", "user:2", "userx", "zed"}, ks.Keys("")); diff != "" {
		t.Errorf("Keys(\"\") mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"user:1", "user:2"}, ks.Keys("user:")); diff != "" {
		t.Errorf("Keys(user:) mismatch (-want +got):\n%s", diff)
	}
	if got := ks.Keys("nope"); len(got) != 0 {
		t.Errorf("Keys(nope) = %v, want empty", got)
	}
}

func TestParseValue(t *testing.T) {
	valid := map[string]string{
		`{"score": 5}`:    `{"score":5}`,
		` [1, 2 , 3] `:    `[1,2,3]`,
		`"not-an-object"`: `"not-an-object"`,
		`0`:               `0`,
		`false`:           `false`,
		`null`:            `null`,
		`""`:              `""`,
	}
	for in, want := range valid {
		got, err := ParseValue([]byte(in))
		if err != nil {
			t.Errorf("ParseValue(%q) error = %v", in, err)
			continue
		}
		if string(got) != want {
			t.Errorf("ParseValue(%q) = %s, want %s", in, got, want)
		}
	}

	for _, in := range []string{``, `   `, `{`, `{"a":}`, `not-json`, `1 2`, `{"a":1}}`} {
		if _, err := ParseValue([]byte(in)); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("ParseValue(%q) error = %v, want ErrInvalidValue", in, err)
		}
	}
}

func TestValidateKey(t *testing.T) {
	if err := ValidateKey("alice"); err != nil {
		t.Errorf("ValidateKey(alice) error = %v", err)
	}
	if err := ValidateKey(""); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ValidateKey(\"\") error = %v, want ErrInvalidValue", err)
	}
	if err := ValidateKey("bad\xff"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("ValidateKey(invalid utf8) error = %v, want ErrInvalidValue", err)
	}
}

func TestMarshalValue(t *testing.T) {
	got, err := MarshalValue(map[string]any{"b": []int{1, 2}, "a": true})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":true,"b":[1,2]}` {
		t.Errorf("MarshalValue = %s", got)
	}

	if _, err := MarshalValue(make(chan int)); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("MarshalValue(chan) error = %v, want ErrInvalidValue", err)
	}
}
