package linkage

import "testing"

func TestTerminal(t *testing.T) {
	cases := []struct {
		w    Width
		want Link
	}{
		{1, 0xff},
		{3, 0xffffff},
		{4, 0xffffffff},
		{5, 0xffffffffff},
	}
	for _, c := range cases {
		if got := c.w.Terminal(); got != c.want {
			t.Errorf("Width(%d).Terminal() = %#x, want %#x", c.w, got, c.want)
		}
		if !c.w.IsTerminal(c.want) {
			t.Errorf("Width(%d).IsTerminal(terminal) = false", c.w)
		}
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	w := Width(3)
	buf := make([]byte, 3)
	w.Put(buf, 0x010203)
	if buf[0] != 0x03 || buf[1] != 0x02 || buf[2] != 0x01 {
		t.Fatalf("unexpected little-endian encoding: %x", buf)
	}
	if got := w.Get(buf); got != 0x010203 {
		t.Fatalf("Get() = %#x, want %#x", got, 0x010203)
	}
}

func TestFitsAndMax(t *testing.T) {
	w := Width(3)
	if !w.Fits(w.Max()) {
		t.Fatal("Max() must fit")
	}
	if w.Fits(w.Terminal()) {
		t.Fatal("terminal must not fit")
	}
}

func TestValidate(t *testing.T) {
	w := Width(1)
	if err := w.Validate(254); err != nil {
		t.Fatalf("254 records should fit in a 1-byte link: %v", err)
	}
	if err := w.Validate(255); err == nil {
		t.Fatal("255 records should overflow a 1-byte link (terminal=0xff)")
	}
}
