package message

import (
	"errors"
	"testing"

	"picoauth/internal/domain"
)

func TestFieldReader_Errors(t *testing.T) {
	cases := map[string][]byte{
		"truncated prefix": {0, 0, 1},
		"length overflow":  {0, 0, 0, 9, 1, 2},
		"trailing bytes":   {0, 0, 0, 1, 7, 0xaa},
	}
	for name, buf := range cases {
		r := &fieldReader{buf: buf}
		r.readBytes("f")
		if err := r.done(); !errors.Is(err, ErrFieldDeserialization) {
			t.Fatalf("%s: want ErrFieldDeserialization, got %v", name, err)
		}
	}
}

func TestFieldWriter_LengthPrefix(t *testing.T) {
	var w fieldWriter
	w.writeBytes([]byte{0xaa, 0xbb})
	w.writeInt32(-1)
	got := w.bytes()
	want := []byte{0, 0, 0, 2, 0xaa, 0xbb, 0, 0, 0, 4, 0xff, 0xff, 0xff, 0xff}
	if string(got) != string(want) {
		t.Fatalf("want %x, got %x", want, got)
	}
}

// A well-encrypted buffer with the wrong layout is a deserialization error,
// not a decryption error.
func TestDecrypt_WrongLayout_IsFieldDeserialization(t *testing.T) {
	key := domain.NewSecretKey(domain.AlgorithmAES, make([]byte, 16))

	var w fieldWriter
	w.writeBytes([]byte{1, 2}) // status must be one byte
	w.writeBytes(nil)
	env, err := seal(key, 1, &w)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	enc := &EncStatusMessage{Envelope: env}
	if _, err := enc.Decrypt(key); !errors.Is(err, ErrFieldDeserialization) {
		t.Fatalf("want ErrFieldDeserialization, got %v", err)
	}

	var w2 fieldWriter
	w2.writeByte(9) // unknown status
	w2.writeBytes(nil)
	env2, _ := seal(key, 1, &w2)
	if _, err := (&EncStatusMessage{Envelope: env2}).Decrypt(key); !errors.Is(err, ErrFieldDeserialization) {
		t.Fatalf("unknown status: want ErrFieldDeserialization, got %v", err)
	}

	var w3 fieldWriter
	w3.writeBytes([]byte("not a key"))
	w3.writeBytes(nil)
	w3.writeBytes(nil)
	w3.writeBytes(nil)
	env3, _ := seal(key, 1, &w3)
	if _, err := (&EncPicoAuthMessage{Envelope: env3}).Decrypt(key); !errors.Is(err, ErrFieldDeserialization) {
		t.Fatalf("bad key encoding: want ErrFieldDeserialization, got %v", err)
	}
}
