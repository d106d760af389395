package main

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteOutputs(t *testing.T) {
	var buffer bytes.Buffer
	output := []byte(`{"equal":false,"differentPixels":3,"baseline":"a.png","offset":{"x":1,"y":2}}`)

	if err := writeOutputs(&buffer, output); err != nil {
		t.Fatal(err)
	}

	want := "baseline=a.png\ndifferentPixels=3\nequal=false\noffset={\"x\":1,\"y\":2}\n"
	if diff := cmp.Diff(want, buffer.String()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if err := writeOutputs(&buffer, []byte("not json")); err == nil {
		t.Error("expected error for invalid output")
	}
}
