package streamauth

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	user, pass, ok, err := Decode(base64.StdEncoding.EncodeToString([]byte("alice:s3cret")))
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if user != "alice" || pass != "s3cret" {
		t.Errorf("got %q/%q", user, pass)
	}
}

func TestDecode_password_with_colon(t *testing.T) {
	user, pass, ok, err := Decode(base64.StdEncoding.EncodeToString([]byte("bob:pa:ss")))
	if err != nil || !ok {
		t.Fatalf("Decode: ok=%v err=%v", ok, err)
	}
	if user != "bob" || pass != "pa:ss" {
		t.Errorf("only the first colon separates user and pass, got %q/%q", user, pass)
	}
}

func TestDecode_empty(t *testing.T) {
	_, _, ok, err := Decode("")
	if err != nil {
		t.Fatalf("empty header should not error: %v", err)
	}
	if ok {
		t.Error("empty header should yield ok=false")
	}
}

func TestDecode_malformed(t *testing.T) {
	for _, v := range []string{"%%%", base64.StdEncoding.EncodeToString([]byte("no-colon"))} {
		if _, _, _, err := Decode(v); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): expected ErrMalformed, got %v", v, err)
		}
	}
}
