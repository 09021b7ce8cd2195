package hal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type lineRecorder struct{ lines []string }

func (r *lineRecorder) WriteLineString(s string) { r.lines = append(r.lines, s) }
func (r *lineRecorder) WriteLineBytes(b []byte)  { r.lines = append(r.lines, string(b)) }

func TestVirtualPinCaps(t *testing.T) {
	p := NewVirtualPin("BL", GPIOCapOutput, nil)
	if err := p.Configure(GPIOModeInput, GPIOPullNone); err == nil {
		t.Fatal("Configure(input) on output-only pin succeeded")
	}
	if err := p.Configure(GPIOModeOutput, GPIOPullUp); err == nil {
		t.Fatal("Configure(pull-up) without the cap succeeded")
	}
	if err := p.Write(true); err == nil {
		t.Fatal("Write() before Configure succeeded")
	}
	if _, err := p.Read(); err == nil {
		t.Fatal("Read() before Configure succeeded")
	}
}

func TestVirtualPinWriteLogs(t *testing.T) {
	rec := &lineRecorder{}
	p := NewVirtualPin("BL", GPIOCapOutput, rec)
	if err := p.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	_ = p.Write(false)
	_ = p.Write(true)

	if got := p.Writes(); got != 2 {
		t.Fatalf("Writes() = %d, want 2", got)
	}
	if lvl, _ := p.Read(); !lvl {
		t.Fatal("Read() = false, want true")
	}
	want := []string{"gpio: BL LOW", "gpio: BL HIGH"}
	if diff := cmp.Diff(want, rec.lines); diff != "" {
		t.Fatalf("log lines mismatch (-want +got):\n%s", diff)
	}
}
