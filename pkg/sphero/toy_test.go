package sphero

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"periph.io/x/periph/conn/physic"
)

// fakeTransport records every frame and answers requests through respond.
type fakeTransport struct {
	written []*Packet
	pending [][]byte
	respond func(req *Packet) [][]byte
	closed  bool
}

func (f *fakeTransport) Write(frame []byte) error {
	packets := (&Decoder{}).Feed(frame)
	if len(packets) != 1 {
		return errors.New("toy wrote a malformed frame")
	}
	f.written = append(f.written, packets[0])
	if f.respond != nil {
		f.pending = append(f.pending, f.respond(packets[0])...)
	}
	return nil
}

func (f *fakeTransport) ReadChunk(timeout time.Duration) ([]byte, error) {
	if len(f.pending) == 0 {
		return nil, ErrReadTimeout
	}
	chunk := f.pending[0]
	f.pending = f.pending[1:]
	return chunk, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestToy(name string) (*Toy, *fakeTransport, *fakeClock) {
	ft := &fakeTransport{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	toy := NewToy(name, ft)
	toy.now = clock.now
	return toy, ft, clock
}

func batteryResponse(req *Packet, centivolts uint16, errCode byte) *Packet {
	return &Packet{
		Flags:    FlagIsResponse | FlagHasTargetID | FlagHasSourceID,
		TargetID: req.SourceID,
		SourceID: req.TargetID,
		DID:      req.DID,
		CID:      req.CID,
		Seq:      req.Seq,
		ErrCode:  errCode,
		Data:     []byte{byte(centivolts >> 8), byte(centivolts)},
	}
}

func TestModelForName(t *testing.T) {
	for name, expected := range map[string]string{
		"SB-1234": "BOLT",
		"sb-abcd": "BOLT",
		"SM-0001": "Mini",
		"XX-9999": "BOLT",
		"":        "BOLT",
	} {
		if m := ModelForName(name); m.Name != expected {
			t.Errorf("ModelForName(%q) = %s, expected %s", name, m.Name, expected)
		}
	}
}

func TestMatchToyName(t *testing.T) {
	for _, c := range []struct {
		want, advertised string
		match            bool
	}{
		{"SB-1234", "SB-1234", true},
		{"sb-1234 ", "SB-1234", true},
		{"SB-1234", "SB-9999", false},
		{"", "SB-9999", true},
		{"", "SM-0001", true},
		{"", "LE-Headphones", false},
		{"", "", false},
	} {
		if got := MatchToyName(c.want, c.advertised); got != c.match {
			t.Errorf("MatchToyName(%q, %q) = %v, expected %v", c.want, c.advertised, got, c.match)
		}
	}
}

func TestDrivePayload(t *testing.T) {
	p := BOLT.DriveWithHeading(100, 270)
	if p.DID != DIDDriving || p.CID != CIDDriveWithHeading {
		t.Fatalf("Wrong command %s", p)
	}
	if p.TargetID != TargetST || p.Flags&FlagHasTargetID == 0 {
		t.Fatalf("BOLT drive should be targeted at the ST processor: %s", p)
	}
	expected := []byte{100, 0x01, 0x0e, 0}
	if string(p.Data) != string(expected) {
		t.Fatalf("Data = % x, expected % x", p.Data, expected)
	}

	// Speed is clamped and the heading wrapped.
	p = Mini.DriveWithHeading(300, 359.7)
	if p.Flags&FlagHasTargetID != 0 {
		t.Fatalf("Mini commands are untargeted: %s", p)
	}
	expected = []byte{255, 0, 0, 0}
	if string(p.Data) != string(expected) {
		t.Fatalf("Data = % x, expected % x", p.Data, expected)
	}
	if p = BOLT.DriveWithHeading(-5, -90); p.Data[0] != 0 || p.Data[1] != 0x01 || p.Data[2] != 0x0e {
		t.Fatalf("Data = % x", p.Data)
	}
}

func TestLEDCommands(t *testing.T) {
	green := color.RGBA{G: 255}
	p := BOLT.FrontLED(green)
	expected := []byte{0, 0, 0, 0x07, 0, 255, 0}
	if p.CID != CIDSetAllLEDs32BitMask || string(p.Data) != string(expected) {
		t.Fatalf("BOLT front LED = %s", p)
	}
	p = Mini.FrontLED(green)
	expected = []byte{0, 0x0e, 0, 255, 0}
	if p.CID != CIDSetAllLEDs16BitMask || string(p.Data) != string(expected) {
		t.Fatalf("Mini front LED = %s", p)
	}
	p = BOLT.MatrixCharacter('3', color.RGBA{R: 255, G: 50})
	expected = []byte{255, 50, 0, '3'}
	if p == nil || p.CID != CIDSetMatrixCharacter || string(p.Data) != string(expected) {
		t.Fatalf("BOLT matrix = %v", p)
	}
	if Mini.MatrixCharacter('3', color.RGBA{}) != nil {
		t.Fatal("Mini has no matrix")
	}
}

func TestParseBatteryVoltage(t *testing.T) {
	v, ok := ParseBatteryVoltage(&Packet{Data: []byte{0x01, 0x8b}})
	if !ok || v != 3950*physic.MilliVolt {
		t.Fatalf("Got %v %v, expected 3.95V", v, ok)
	}
	if _, ok := ParseBatteryVoltage(&Packet{Data: []byte{0x01}}); ok {
		t.Fatal("Short data should not parse")
	}
}

func TestSequenceNumbersIncrement(t *testing.T) {
	toy, ft, _ := newTestToy("SB-1234")
	_ = toy.Wake()
	_ = toy.SetFrontColour(color.RGBA{G: 255})
	_ = toy.SetMatrixCharacter('1', color.RGBA{R: 255, G: 200})
	if len(ft.written) != 3 {
		t.Fatalf("Expected 3 packets, got %d", len(ft.written))
	}
	for i, p := range ft.written {
		if int(p.Seq) != i {
			t.Errorf("Packet %d had seq %d", i, p.Seq)
		}
	}
}

func TestDriveDedupeAndRefresh(t *testing.T) {
	toy, ft, clock := newTestToy("SB-1234")

	expectSent := func(n int) {
		t.Helper()
		if len(ft.written) != n {
			t.Fatalf("Expected %d packets, got %d", n, len(ft.written))
		}
	}

	_ = toy.SetHeading(90)
	_ = toy.SetSpeed(50)
	expectSent(2)

	// Repeating the same state within the refresh window sends nothing.
	clock.advance(16 * time.Millisecond)
	_ = toy.SetHeading(90)
	_ = toy.SetSpeed(50)
	expectSent(2)

	// A change goes out straight away.
	_ = toy.SetSpeed(70)
	expectSent(3)
	if ft.written[2].Data[0] != 70 {
		t.Fatalf("Expected speed 70, got %s", ft.written[2])
	}

	// The same state is refreshed once the window passes.
	clock.advance(DefaultDriveRefresh)
	_ = toy.SetSpeed(70)
	expectSent(4)

	// Stop always goes out.
	_ = toy.Stop()
	_ = toy.Stop()
	expectSent(6)
	last := ft.written[5]
	if last.Data[0] != 0 || last.Data[1] != 0 || last.Data[2] != 90 {
		t.Fatalf("Stop should keep the heading: %s", last)
	}
}

func TestBatteryVoltage(t *testing.T) {
	toy, ft, _ := newTestToy("SB-1234")
	ft.respond = func(req *Packet) [][]byte {
		if req.CID != CIDBatteryVoltage {
			return nil
		}
		unrelated := &Packet{Flags: FlagIsResponse, DID: DIDPower, CID: CIDWake, Seq: req.Seq}
		stale := batteryResponse(req, 100, 0)
		stale.Seq = req.Seq - 1
		frame := batteryResponse(req, 395, 0).Encode()
		// Split the real answer across two chunks.
		return [][]byte{unrelated.Encode(), stale.Encode(), frame[:3], frame[3:]}
	}
	_ = toy.Wake()

	v, err := toy.BatteryVoltage()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v != 3950*physic.MilliVolt {
		t.Fatalf("Got %v, expected 3.95V", v)
	}
	req := ft.written[1]
	if req.Flags&FlagRequestsResponse == 0 || req.TargetID != TargetNordic {
		t.Fatalf("Bad battery request %s", req)
	}
}

func TestBatteryVoltageFailures(t *testing.T) {
	toy, ft, _ := newTestToy("SB-1234")

	// No answer at all.
	_, err := toy.BatteryVoltage()
	var te *TelemetryError
	if !errors.As(err, &te) || !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("Expected a telemetry timeout, got %v", err)
	}

	// The toy reports an error.
	ft.respond = func(req *Packet) [][]byte {
		return [][]byte{batteryResponse(req, 0, 1).Encode()}
	}
	if _, err = toy.BatteryVoltage(); !errors.As(err, &te) {
		t.Fatalf("Expected a telemetry error, got %v", err)
	}

	// A response with no payload.
	ft.respond = func(req *Packet) [][]byte {
		r := batteryResponse(req, 0, 0)
		r.Data = nil
		return [][]byte{r.Encode()}
	}
	if _, err = toy.BatteryVoltage(); !errors.As(err, &te) {
		t.Fatalf("Expected a telemetry error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	toy, ft, _ := newTestToy("SM-0001")
	if err := toy.Close(); err != nil || !ft.closed {
		t.Fatalf("Close did not close the transport: %v", err)
	}
}

func TestDummy(t *testing.T) {
	d := Dummy("SB-TEST")
	_ = d.SetHeading(12)
	_ = d.SetSpeed(50)
	if v, err := d.BatteryVoltage(); err != nil || v != DummyVoltage {
		t.Fatalf("Dummy battery = %v %v", v, err)
	}
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}
