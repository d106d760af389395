package picture_test

import (
	"errors"
	"fmt"
	"pixel-compare/internal/picture"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPixelGrid(t *testing.T) {
	type in struct {
		raw             []byte
		width           int
		height          int
		hasAlphaChannel bool
	}

	tests := []struct {
		name      string
		in        in
		want      picture.PixelGrid
		wantError error
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{0xff, 0x10, 0x20, 0x30},
				1,
				1,
				true,
			},
			picture.PixelGrid{
				{0xff302010},
			},
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{0x10, 0x20, 0x30},
				1,
				1,
				false,
			},
			picture.PixelGrid{
				{0xff302010},
			},
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{
					0x00, 0x01, 0x02, 0x03, 0x10, 0x11, 0x12, 0x13,
					0x20, 0x21, 0x22, 0x23, 0x30, 0x31, 0x32, 0x33,
				},
				2,
				2,
				true,
			},
			picture.PixelGrid{
				{0x00030201, 0x10131211},
				{0x20232221, 0x30333231},
			},
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{
					0x01, 0x02, 0x03, 0x11, 0x12, 0x13, 0x21, 0x22, 0x23,
					0x31, 0x32, 0x33, 0x41, 0x42, 0x43, 0x51, 0x52, 0x53,
				},
				3,
				2,
				false,
			},
			picture.PixelGrid{
				{0xff030201, 0xff131211, 0xff232221},
				{0xff333231, 0xff434241, 0xff535251},
			},
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{0xff, 0x10, 0x20, 0x30, 0xff, 0x40, 0x50, 0x60, 0xff},
				2,
				2,
				true,
			},
			picture.PixelGrid{
				{0xff302010, 0xff605040},
				{0, 0},
			},
			&picture.TruncatedBufferError{
				Layout:   picture.LayoutABGR,
				Expected: 16,
				Actual:   9,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{0x10, 0x20, 0x30, 0x40, 0x50},
				1,
				1,
				false,
			},
			picture.PixelGrid{
				{0xff302010},
			},
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				nil,
				2,
				1,
				false,
			},
			picture.PixelGrid{
				{0, 0},
			},
			&picture.TruncatedBufferError{
				Layout:   picture.LayoutBGR,
				Expected: 6,
				Actual:   0,
			},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{
				[]byte{0x10, 0x20, 0x30},
				-1,
				-1,
				false,
			},
			picture.PixelGrid{},
			nil,
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		wantError := tt.wantError
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := picture.NewPixelGrid(in.raw, in.width, in.height, in.hasAlphaChannel)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}

			if wantError == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var truncated *picture.TruncatedBufferError
			if !errors.As(err, &truncated) {
				t.Fatalf("expected *TruncatedBufferError, got %v", err)
			}
			if diff := cmp.Diff(wantError, error(truncated)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewPixelGridIsIdempotent(t *testing.T) {
	raw := make([]byte, 64*48*4)
	for i := range raw {
		raw[i] = byte(i * 31)
	}

	first, err := picture.NewPixelGrid(raw, 64, 48, true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := picture.NewPixelGrid(raw, 64, 48, true)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if first.Height() != 48 || first.Width() != 64 {
		t.Errorf("expected 48x64 grid, got %s", first)
	}
	for y := range first {
		if len(first[y]) != 64 {
			t.Fatalf("row %d has %d columns", y, len(first[y]))
		}
	}
}

func TestPixelGridString(t *testing.T) {
	tests := []struct {
		name string
		in   picture.PixelGrid
		want string
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			nil,
			"[null:null]",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			picture.PixelGrid{},
			"[0:null]",
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			picture.PixelGrid{{1, 2, 3}, {4, 5, 6}},
			"[2:3]",
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(want, in.String()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func BenchmarkNewPixelGrid(b *testing.B) {
	raw := make([]byte, 1920*1080*4)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = picture.NewPixelGrid(raw, 1920, 1080, true)
	}
}
