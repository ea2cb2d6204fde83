package safetensors

import (
	"encoding/binary"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.safetensors")

	want := Tensor{
		Name:  "scale",
		Shape: []int64{1, 2, 4},
		Data:  []float32{1.5, -0.25, 3.25, 4.0, -1.0, 0.5, 2.5, 9.0},
	}

	if err := WriteFile(path, []Tensor{want}, map[string]string{"seed": "7"}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	got, err := store.Tensor("scale")
	if err != nil {
		t.Fatalf("Tensor: %v", err)
	}

	if len(got.Shape) != 3 || got.Shape[0] != 1 || got.Shape[1] != 2 || got.Shape[2] != 4 {
		t.Fatalf("tensor shape = %v, want %v", got.Shape, want.Shape)
	}

	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("data[%d] = %v, want %v", i, got.Data[i], want.Data[i])
		}
	}

	if md := store.Metadata(); md["seed"] != "7" {
		t.Fatalf("metadata = %v, want seed=7", md)
	}
}

func TestEncodeTensors_SortedAndDeterministic(t *testing.T) {
	in := []Tensor{
		{Name: "b", Shape: []int64{2}, Data: []float32{3, 4}},
		{Name: "a", Shape: []int64{1, 2}, Data: []float32{1, 2}},
	}

	first, err := EncodeTensors(in, nil)
	if err != nil {
		t.Fatalf("EncodeTensors: %v", err)
	}

	second, err := EncodeTensors(in, nil)
	if err != nil {
		t.Fatalf("EncodeTensors: %v", err)
	}

	if string(first) != string(second) {
		t.Fatal("encoding is not deterministic")
	}

	store, err := OpenStoreFromBytes(first)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}

	names := store.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Names() = %v, want [a b]", names)
	}

	if md := store.Metadata(); len(md) != 0 {
		t.Fatalf("Metadata() = %v, want empty", md)
	}
}

func TestEncodeTensors_ValidationErrors(t *testing.T) {
	if _, err := EncodeTensors(nil, nil); err == nil {
		t.Fatal("EncodeTensors(nil) should fail")
	}

	if _, err := EncodeTensors([]Tensor{{Name: "", Shape: []int64{1}, Data: []float32{1}}}, nil); err == nil {
		t.Fatal("empty tensor name should fail")
	}

	if _, err := EncodeTensors([]Tensor{{Name: "__metadata__", Shape: []int64{1}, Data: []float32{1}}}, nil); err == nil {
		t.Fatal("reserved tensor name should fail")
	}

	if _, err := EncodeTensors([]Tensor{
		{Name: "x", Shape: []int64{1}, Data: []float32{1}},
		{Name: "x", Shape: []int64{1}, Data: []float32{2}},
	}, nil); err == nil {
		t.Fatal("duplicate tensor names should fail")
	}

	if _, err := EncodeTensors([]Tensor{{Name: "x", Shape: []int64{2}, Data: []float32{1}}}, nil); err == nil {
		t.Fatal("shape/data mismatch should fail")
	}
}

func TestOpenStoreFromBytes_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"short", []byte{1, 2, 3}, "too short"},
		{"header overflow", withDeclaredLength(100, ""), "exceeds file size"},
		{"bad json", headerOnly("{{{"), "parse header"},
		{"empty", headerOnly("{}"), "no tensors"},
		{"dtype", headerOnly(`{"x":{"dtype":"I8","shape":[1],"data_offsets":[0,1]}}`), "unsupported dtype"},
		{"offsets", headerOnly(`{"x":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`), "exceeds file size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenStoreFromBytes(tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestStore_TensorNotFound(t *testing.T) {
	blob, err := EncodeTensors([]Tensor{{Name: "a", Shape: []int64{1}, Data: []float32{1}}}, nil)
	if err != nil {
		t.Fatalf("EncodeTensors: %v", err)
	}

	store, err := OpenStoreFromBytes(blob)
	if err != nil {
		t.Fatalf("OpenStoreFromBytes: %v", err)
	}

	if _, err := store.Tensor("missing"); err == nil || !strings.Contains(err.Error(), "available: a") {
		t.Fatalf("error = %v, want not found listing", err)
	}
}

// headerOnly builds a payload holding only a header and no tensor bytes.
func headerOnly(header string) []byte {
	return withDeclaredLength(uint64(len(header)), header)
}

func withDeclaredLength(declared uint64, header string) []byte {
	out := make([]byte, 8, 8+len(header))
	binary.LittleEndian.PutUint64(out, declared)

	return append(out, header...)
}
