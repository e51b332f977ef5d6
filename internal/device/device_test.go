package device

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/discovery"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/led"
	"github.com/muurk/luxio/internal/loop"
	"github.com/muurk/luxio/internal/network"
	"github.com/muurk/luxio/internal/timeutil"
)

const testID = "5C:CF:7F:A1:B2:C3"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events.Event{Event: name, Data: data})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type countingSyncer struct{ discovery, update int }

func (s *countingSyncer) SyncDiscovery() { s.discovery++ }
func (s *countingSyncer) CheckUpdate()   { s.update++ }

type fixture struct {
	loop     *loop.Loop
	clock    *timeutil.MockClock
	store    *config.MemoryStore
	driver   *led.MemoryDriver
	rec      *recorder
	adv      *discovery.StaticAdvertiser
	stack    *network.SimStack
	syncer   *countingSyncer
	dev      *Device
	restarts int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	f := &fixture{
		loop:   loop.New(clock, 0),
		clock:  clock,
		store:  config.NewMemoryStore(nil),
		driver: led.NewMemoryDriver(),
		rec:    &recorder{},
		adv:    &discovery.StaticAdvertiser{},
		stack:  network.NewSimStack(testID),
		syncer: &countingSyncer{},
	}

	engine := led.NewEngine(f.driver, clock)
	f.dev = New(f.loop, f.store, config.Default(), engine, f.rec, f.adv, Options{
		ID:       testID,
		Version:  "103",
		Platform: "linux/arm64",
		Restart:  func() { f.restarts++ },
	})
	ctrl := network.NewController(f.loop, f.stack, f.dev, f.rec, f.syncer)
	f.dev.Attach(ctrl, f.syncer)

	if err := f.dev.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	f.rec.reset()
	return f
}

func (f *fixture) step(d time.Duration) {
	now := f.clock.Advance(d)
	f.loop.Step(now)
	f.dev.Engine().Tick(now)
}

func TestDefaultName(t *testing.T) {
	tests := map[string]string{
		"5C:CF:7F:A1:B2:C3": "Luxio-A1B2C3",
		"5c-cf-7f-a1-b2-c3": "Luxio-A1B2C3",
		"abc":               "Luxio-ABC",
	}
	for id, want := range tests {
		if got := DefaultName(id); got != want {
			t.Errorf("DefaultName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestBootStoresDefaultName(t *testing.T) {
	f := newFixture(t)

	if got := f.dev.Name(); got != "Luxio-A1B2C3" {
		t.Errorf("Name() = %q", got)
	}
	stored, _ := f.store.Load()
	if stored.DeviceName != "Luxio-A1B2C3" {
		t.Errorf("stored name = %q", stored.DeviceName)
	}
	if f.dev.Engine().Count() != config.DefaultLEDCount {
		t.Errorf("engine count = %d", f.dev.Engine().Count())
	}
}

func TestSetNameValidation(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"", strings.Repeat("x", config.MaxNameLen+1)} {
		err := f.dev.SetName(name)
		if apierr.CodeOf(err) != apierr.CodeNameOutOfRange {
			t.Errorf("SetName(%d bytes) error = %v, want name_out_of_range", len(name), err)
		}
	}

	if got := f.dev.Name(); got != "Luxio-A1B2C3" {
		t.Errorf("name changed to %q by a rejected SetName", got)
	}
	if n := len(f.rec.names()); n != 0 {
		t.Errorf("%d events emitted for rejected SetName", n)
	}
}

func TestSetName(t *testing.T) {
	f := newFixture(t)

	if err := f.dev.SetName("Kitchen"); err != nil {
		t.Fatalf("SetName() error = %v", err)
	}

	stored, _ := f.store.Load()
	if stored.DeviceName != "Kitchen" {
		t.Errorf("stored name = %q", stored.DeviceName)
	}
	if f.adv.Name() != "Kitchen" {
		t.Errorf("advertised name = %q", f.adv.Name())
	}
	if diff := cmp.Diff([]string{events.SystemConfig}, f.rec.names()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	f.step(DiscoveryDelay - time.Millisecond)
	if f.syncer.discovery != 0 {
		t.Error("discovery sync ran before the debounce delay")
	}
	f.step(time.Millisecond)
	if f.syncer.discovery != 1 {
		t.Errorf("discovery syncs = %d, want 1", f.syncer.discovery)
	}
}

func TestSetNamePersistFailure(t *testing.T) {
	f := newFixture(t)
	f.store.SaveErr = errors.New("flash worn out")

	err := f.dev.SetName("Kitchen")
	if apierr.CodeOf(err) != apierr.CodePersistFailed {
		t.Fatalf("SetName() error = %v, want persist_failed", err)
	}
	if f.dev.Name() != "Luxio-A1B2C3" {
		t.Error("in-memory name changed although the save failed")
	}
	if len(f.rec.names()) != 0 {
		t.Error("event emitted for a change that was not persisted")
	}
}

func TestSetCountRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.step(led.AnimateDuration)

	for _, n := range []int{1, 7, led.MaxLEDs, 60} {
		if err := f.dev.SetCount(n); err != nil {
			t.Fatalf("SetCount(%d) error = %v", n, err)
		}
		if got := f.dev.LEDConfig().Count; got != n {
			t.Errorf("count after SetCount(%d) = %d", n, got)
		}
		f.step(led.AnimateDuration)
		if got := len(f.driver.Frame()); got != n {
			t.Errorf("driver frame has %d pixels, want %d", got, n)
		}
	}
	if w := f.driver.OutOfRangeWrites(); w != 0 {
		t.Errorf("OutOfRangeWrites() = %d, want 0", w)
	}

	for _, n := range []int{0, led.MaxLEDs + 1} {
		if err := f.dev.SetCount(n); apierr.CodeOf(err) != apierr.CodeCountOutOfRange {
			t.Errorf("SetCount(%d) error = %v, want count_out_of_range", n, err)
		}
	}
}

func TestSetCountEmitsAndSyncs(t *testing.T) {
	f := newFixture(t)

	if err := f.dev.SetCount(30); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{events.LEDConfig, events.LEDState}, f.rec.names()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	f.step(DiscoveryDelay)
	if f.syncer.discovery != 1 {
		t.Errorf("discovery syncs = %d, want 1", f.syncer.discovery)
	}
}

func TestSetTypeAndPin(t *testing.T) {
	f := newFixture(t)

	if err := f.dev.SetType("WS2812"); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.SetPin(4); err != nil {
		t.Fatal(err)
	}
	want := LEDConfig{Count: 60, Pin: 4, Type: "WS2812"}
	if diff := cmp.Diff(want, f.dev.LEDConfig()); diff != "" {
		t.Errorf("LEDConfig() mismatch (-want +got):\n%s", diff)
	}
	if _, pin, typ := f.driver.Config(); pin != 4 || typ != led.WS2812 {
		t.Errorf("driver config pin=%d type=%v", pin, typ)
	}

	if err := f.dev.SetType("APA102"); apierr.CodeOf(err) != apierr.CodeInvalidType {
		t.Errorf("SetType(APA102) error = %v", err)
	}
	if err := f.dev.SetPin(256); apierr.CodeOf(err) != apierr.CodePinOutOfRange {
		t.Errorf("SetPin(256) error = %v", err)
	}
}

func TestReconfigureRestoresOnDriverFailure(t *testing.T) {
	f := newFixture(t)
	f.step(led.AnimateDuration)
	f.driver.InitErr = func(_ int, pin uint8, _ led.StripType) error {
		if pin == 13 {
			return errors.New("pin 13 is not wired")
		}
		return nil
	}
	saves := f.store.Saves()

	if err := f.dev.SetPin(13); !apierr.IsInternal(err) {
		t.Fatalf("SetPin(13) error = %v, want internal error", err)
	}

	want := LEDConfig{Count: config.DefaultLEDCount, Pin: config.Default().LEDPin, Type: config.Default().LEDType.String()}
	if diff := cmp.Diff(want, f.dev.LEDConfig()); diff != "" {
		t.Errorf("LEDConfig() mismatch (-want +got):\n%s", diff)
	}
	stored, err := f.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if stored.LEDPin != want.Pin {
		t.Errorf("stored pin = %d, want %d", stored.LEDPin, want.Pin)
	}
	if got := f.store.Saves() - saves; got != 2 {
		t.Errorf("saves = %d, want 2", got)
	}
	if got := f.dev.Engine().Count(); got != config.DefaultLEDCount {
		t.Errorf("engine count = %d, want %d", got, config.DefaultLEDCount)
	}

	if err := f.dev.SetColor(led.Color{R: 255}); err != nil {
		t.Errorf("SetColor() after failed SetPin error = %v", err)
	}
}

func TestLEDSetters(t *testing.T) {
	f := newFixture(t)

	if err := f.dev.SetBrightness(MinBrightness - 1); apierr.CodeOf(err) != apierr.CodeBrightnessOutOfRange {
		t.Errorf("SetBrightness(9) error = %v", err)
	}
	if err := f.dev.SetBrightness(MinBrightness); err != nil {
		t.Errorf("SetBrightness(10) error = %v", err)
	}
	if err := f.dev.SetColor(led.Color{R: 255}); err != nil {
		t.Fatal(err)
	}
	if err := f.dev.SetOn(false); err != nil {
		t.Fatal(err)
	}

	want := LEDState{On: false, Brightness: MinBrightness, Colors: []led.Color{{R: 255}}}
	if diff := cmp.Diff(want, f.dev.LEDState()); diff != "" {
		t.Errorf("LEDState() mismatch (-want +got):\n%s", diff)
	}

	if err := f.dev.SetGradient(nil); apierr.CodeOf(err) != apierr.CodeColorsOutOfRange {
		t.Errorf("SetGradient(nil) error = %v", err)
	}
	if err := f.dev.SetGradient(make([]led.Color, 61)); apierr.CodeOf(err) != apierr.CodeColorsOutOfRange {
		t.Errorf("SetGradient(61 colours) error = %v", err)
	}
}

func TestFactoryReset(t *testing.T) {
	f := newFixture(t)
	if err := f.dev.SetName("Kitchen"); err != nil {
		t.Fatal(err)
	}

	if err := f.dev.FactoryReset(); err != nil {
		t.Fatalf("FactoryReset() error = %v", err)
	}
	if f.store.Stored() {
		t.Error("record survived factory reset")
	}

	f.step(RestartDelay - time.Millisecond)
	if f.restarts != 0 {
		t.Error("restarted before the delay")
	}
	f.step(time.Millisecond)
	if f.restarts != 1 {
		t.Errorf("restarts = %d, want 1", f.restarts)
	}
}

func TestFullStateShape(t *testing.T) {
	f := newFixture(t)

	data, err := json.Marshal(f.dev.FullState())
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]map[string]map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, domain := range []string{"system", "network", "led"} {
		for _, part := range []string{"state", "config"} {
			if _, ok := got[domain][part]; !ok {
				t.Errorf("full state missing %s.%s", domain, part)
			}
		}
	}
	if got["system"]["config"]["name"] != "Luxio-A1B2C3" {
		t.Errorf("system.config.name = %v", got["system"]["config"]["name"])
	}
	if got["led"]["config"]["type"] != "SK6812" {
		t.Errorf("led.config.type = %v", got["led"]["config"]["type"])
	}
}

func TestDescriptor(t *testing.T) {
	f := newFixture(t)
	if err := f.dev.Connect("home", "secret"); err != nil {
		t.Fatal(err)
	}
	f.step(network.SettleDelay)
	for {
		select {
		case ev := <-f.stack.Events():
			f.dev.net.HandleEvent(ev)
			continue
		default:
		}
		break
	}

	want := discovery.Descriptor{
		ID:       testID,
		Platform: "linux/arm64",
		Address:  "192.168.1.50",
		Name:     "Luxio-A1B2C3",
		Version:  "103",
		Pixels:   60,
		WiFiSSID: "home",
	}
	if diff := cmp.Diff(want, f.dev.Descriptor()); diff != "" {
		t.Errorf("Descriptor() mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		ssid, pass string
		want       string
	}{
		{"", "x", apierr.CodeSSIDOutOfRange},
		{strings.Repeat("s", 33), "x", apierr.CodeSSIDOutOfRange},
		{"home", strings.Repeat("p", 65), apierr.CodePassOutOfRange},
	}
	for _, tt := range tests {
		if err := f.dev.Connect(tt.ssid, tt.pass); apierr.CodeOf(err) != tt.want {
			t.Errorf("Connect(%d, %d bytes) error = %v, want %s", len(tt.ssid), len(tt.pass), err, tt.want)
		}
	}
	if ssid, _ := f.dev.Credentials(); ssid != "" {
		t.Errorf("credentials stored after rejected Connect: %q", ssid)
	}
}
