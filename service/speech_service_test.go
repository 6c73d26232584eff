package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/difyz9/notetts/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticSettings model.Settings

func (s staticSettings) Settings() model.Settings { return model.Settings(s) }

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeSynth struct {
	id      int
	log     *eventLog
	audio   string
	result  model.SynthesisResult
	err     error
	block   bool
	hold    chan struct{} // 不理会 ctx，直到通道关闭才返回
	panics  bool
	started chan struct{}
	closed  atomic.Bool
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(ctx context.Context, req *model.SynthesisRequest, out io.Writer) (model.SynthesisResult, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.panics {
		panic("boom")
	}
	if f.audio != "" {
		io.WriteString(out, f.audio)
	}
	if f.hold != nil {
		<-f.hold
		return f.result, f.err
	}
	if f.block {
		<-ctx.Done()
		return model.SynthesisResult{}, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeSynth) Close() error {
	f.closed.Store(true)
	if f.log != nil {
		f.log.add(fmt.Sprintf("close-%d", f.id))
	}
	return nil
}

type fakeFactory struct {
	mu     sync.Mutex
	log    *eventLog
	synths []*fakeSynth
	calls  int
	err    error
}

func (f *fakeFactory) CreateProvider(ctx context.Context, settings model.Settings) (Synthesizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.log != nil {
		f.log.add(fmt.Sprintf("create-%d", f.calls))
	}
	if f.err != nil {
		return nil, f.err
	}
	s := f.synths[f.calls-1]
	s.id = f.calls
	s.log = f.log
	return s, nil
}

func (f *fakeFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (n *fakeNotifier) Notify(_ context.Context, notice model.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *fakeNotifier) all() []model.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.Notice(nil), n.notices...)
}

type fakePlayer struct {
	mu     sync.Mutex
	format string
	played []byte
	err    error
}

func (p *fakePlayer) Play(_ context.Context, format string, audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = format
	p.played = append([]byte(nil), audio...)
	return p.err
}

func completed(audio string) *fakeSynth {
	return &fakeSynth{audio: audio, result: model.SynthesisResult{Reason: model.ReasonSynthesizingAudioCompleted}}
}

func waitOutcome(t *testing.T, s *Session) model.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	select {
	case <-s.Done():
	case <-ctx.Done():
		t.Fatal("session did not finish")
	}
	return outcome
}

func TestSpeakSaveCompleted(t *testing.T) {
	dir := t.TempDir()
	factory := &fakeFactory{synths: []*fakeSynth{completed("AUDIO")}}
	notifier := &fakeNotifier{}
	store, _ := OpenKVStore(context.Background(), "")
	svc := NewSpeechService(staticSettings(testSettings()), factory, notifier, nil, store, discardLogger())

	var doneCalls atomic.Int32
	s := svc.Speak(context.Background(), nil, SpeakOptions{
		Mode:     model.ModeSave,
		Text:     "hello",
		Filename: "note1",
		FilePath: dir,
	}, func() { doneCalls.Add(1) })

	outcome := waitOutcome(t, s)
	want := filepath.Join(dir, "note1.mp3")
	if outcome.Status != model.StatusCompleted || outcome.Path != want {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "AUDIO" {
		t.Fatalf("unexpected file content %q (err=%v)", data, err)
	}
	if doneCalls.Load() != 1 {
		t.Fatalf("expected onDone once, got %d", doneCalls.Load())
	}
	if !factory.synths[0].closed.Load() {
		t.Fatal("expected synthesizer handle to be closed")
	}

	notices := notifier.all()
	if len(notices) != 1 || notices[0].Severity != model.SeveritySuccess || !strings.Contains(notices[0].Message, want) {
		t.Fatalf("unexpected notices %+v", notices)
	}

	if v, ok, _ := store.Get(context.Background(), KeyLastOutputDir); !ok || v != dir {
		t.Fatalf("expected last output dir %q, got %q", dir, v)
	}
	if v, ok, _ := store.Get(context.Background(), KeyLastOutputFile); !ok || v != want {
		t.Fatalf("expected last output file %q, got %q", want, v)
	}
}

func TestSpeakEmptyTextResolves(t *testing.T) {
	factory := &fakeFactory{}
	notifier := &fakeNotifier{}
	svc := NewSpeechService(staticSettings(testSettings()), factory, notifier, nil, nil, discardLogger())

	var doneCalls atomic.Int32
	s := svc.Speak(context.Background(), nil, SpeakOptions{Editor: NewDocument("no selection here")}, func() { doneCalls.Add(1) })

	outcome := waitOutcome(t, s)
	if outcome.Status != model.StatusEmpty || !errors.Is(outcome.Err, ErrNothingToSynthesize) {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if factory.callCount() != 0 {
		t.Fatalf("expected no provider call, got %d", factory.callCount())
	}
	if len(notifier.all()) != 0 {
		t.Fatalf("expected no notices, got %+v", notifier.all())
	}
	if doneCalls.Load() != 1 {
		t.Fatalf("expected onDone once, got %d", doneCalls.Load())
	}
}

func TestSpeakTearsDownPrevious(t *testing.T) {
	log := &eventLog{}
	first := &fakeSynth{block: true, started: make(chan struct{})}
	factory := &fakeFactory{log: log, synths: []*fakeSynth{first, completed("B")}}
	notifier := &fakeNotifier{}
	svc := NewSpeechService(staticSettings(testSettings()), factory, notifier, nil, nil, discardLogger())

	s1 := svc.Speak(context.Background(), nil, SpeakOptions{Text: "first"}, func() { log.add("done-1") })
	<-first.started

	s2 := svc.Speak(context.Background(), s1, SpeakOptions{Text: "second"}, func() { log.add("done-2") })
	outcome := waitOutcome(t, s2)
	if outcome.Status != model.StatusCompleted {
		t.Fatalf("unexpected second outcome %+v", outcome)
	}

	prev := waitOutcome(t, s1)
	if prev.Status != model.StatusCanceled {
		t.Fatalf("expected first session canceled, got %+v", prev)
	}

	got := strings.Join(log.snapshot(), ",")
	if got != "create-1,close-1,done-1,create-2,close-2,done-2" {
		t.Fatalf("unexpected lifecycle order %s", got)
	}

	notices := notifier.all()
	if len(notices) != 1 || notices[0].Severity != model.SeveritySuccess {
		t.Fatalf("expected only the second request to notify, got %+v", notices)
	}
}

func TestSpeakAbandonsSynthesizerIgnoringContext(t *testing.T) {
	stuck := completed("LATE")
	stuck.hold = make(chan struct{})
	stuck.started = make(chan struct{})
	factory := &fakeFactory{synths: []*fakeSynth{stuck, completed("B")}}
	notifier := &fakeNotifier{}
	svc := NewSpeechService(staticSettings(testSettings()), factory, notifier, nil, nil, discardLogger())
	svc.teardownGrace = 50 * time.Millisecond

	s1 := svc.Speak(context.Background(), nil, SpeakOptions{Text: "first"}, nil)
	<-stuck.started

	started := make(chan *Session, 1)
	go func() {
		started <- svc.Speak(context.Background(), s1, SpeakOptions{Text: "second"}, nil)
	}()

	var s2 *Session
	select {
	case s2 = <-started:
	case <-time.After(2 * time.Second):
		close(stuck.hold)
		t.Fatal("new request waited for the previous synthesizer to return")
	}

	if outcome := waitOutcome(t, s2); outcome.Status != model.StatusCompleted {
		t.Fatalf("unexpected second outcome %+v", outcome)
	}
	if outcome, err := s1.Wait(context.Background()); err != nil || outcome.Status != model.StatusCanceled {
		t.Fatalf("expected abandoned session canceled, got %+v err=%v", outcome, err)
	}

	close(stuck.hold)
	if outcome := waitOutcome(t, s1); outcome.Status != model.StatusCanceled {
		t.Fatalf("late result replaced the canceled outcome: %+v", outcome)
	}
	if !stuck.closed.Load() {
		t.Fatal("expected the abandoned synthesizer to be closed once it returned")
	}
	if notices := notifier.all(); len(notices) != 1 || notices[0].Severity != model.SeveritySuccess {
		t.Fatalf("expected only the second request to notify, got %+v", notices)
	}
}

func TestSpeakFailureTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		synth    *fakeSynth
		factErr  error
		settings func(*model.Settings)
		contains string
		excludes string
	}{
		{
			name:     "provider reason",
			synth:    &fakeSynth{result: model.SynthesisResult{Reason: model.ReasonCanceled, Detail: "HTTP 401: bad key"}},
			contains: localize("en", msgSynthesisFailed),
			excludes: "401",
		},
		{
			name:     "transport error",
			synth:    &fakeSynth{err: errors.New("connection reset")},
			contains: "connection reset",
		},
		{
			name:     "setup failure",
			factErr:  ErrUnknownProvider,
			contains: "Could not build the synthesis request",
		},
		{
			name:     "invalid speed",
			settings: func(s *model.Settings) { s.Speed = 5 },
			contains: "Could not build the synthesis request",
		},
		{
			name:     "panic",
			synth:    &fakeSynth{panics: true},
			contains: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			if tt.settings != nil {
				tt.settings(&settings)
			}
			factory := &fakeFactory{err: tt.factErr}
			if tt.synth != nil {
				factory.synths = []*fakeSynth{tt.synth}
			}
			notifier := &fakeNotifier{}
			svc := NewSpeechService(staticSettings(settings), factory, notifier, nil, nil, discardLogger())

			var doneCalls atomic.Int32
			s := svc.Speak(context.Background(), nil, SpeakOptions{Text: "hello"}, func() { doneCalls.Add(1) })
			outcome := waitOutcome(t, s)

			if outcome.Status != model.StatusFailed || outcome.Err == nil {
				t.Fatalf("unexpected outcome %+v", outcome)
			}
			if doneCalls.Load() != 1 {
				t.Fatalf("expected onDone once, got %d", doneCalls.Load())
			}
			if tt.synth != nil && !tt.synth.closed.Load() {
				t.Fatal("expected synthesizer handle to be closed")
			}

			notices := notifier.all()
			if len(notices) != 1 || notices[0].Severity != model.SeverityError {
				t.Fatalf("expected one error notice, got %+v", notices)
			}
			if !strings.Contains(notices[0].Message, tt.contains) {
				t.Fatalf("expected notice to contain %q, got %q", tt.contains, notices[0].Message)
			}
			if tt.excludes != "" && strings.Contains(notices[0].Message, tt.excludes) {
				t.Fatalf("notice should not contain %q: %q", tt.excludes, notices[0].Message)
			}
		})
	}
}

func TestSpeakSaveFailureRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	synth := &fakeSynth{audio: "PARTIAL", err: errors.New("stream broken")}
	factory := &fakeFactory{synths: []*fakeSynth{synth}}
	svc := NewSpeechService(staticSettings(testSettings()), factory, &fakeNotifier{}, nil, nil, discardLogger())

	s := svc.Speak(context.Background(), nil, SpeakOptions{Mode: model.ModeSave, Text: "hello", Filename: "broken", FilePath: dir}, nil)
	if outcome := waitOutcome(t, s); outcome.Status != model.StatusFailed {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.mp3")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected partial file to be removed, stat err=%v", err)
	}
}

func TestSpeakPlaysAudio(t *testing.T) {
	player := &fakePlayer{}
	factory := &fakeFactory{synths: []*fakeSynth{completed("PCM")}}
	notifier := &fakeNotifier{}
	svc := NewSpeechService(staticSettings(testSettings()), factory, notifier, player, nil, discardLogger())

	s := svc.Speak(context.Background(), nil, SpeakOptions{Text: "hello"}, nil)
	outcome := waitOutcome(t, s)
	if outcome.Status != model.StatusCompleted || outcome.Path != "" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if string(player.played) != "PCM" || player.format != "audio-16khz-32kbitrate-mono-mp3" {
		t.Fatalf("unexpected playback format=%q audio=%q", player.format, player.played)
	}
	if s.Playing() {
		t.Fatal("expected playback to be finished")
	}
	notices := notifier.all()
	if len(notices) != 1 || notices[0].Message != localize("en", msgPlayCompleted) {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func TestSpeakPlaybackFailureNotifies(t *testing.T) {
	player := &fakePlayer{err: errors.New("no output device")}
	factory := &fakeFactory{synths: []*fakeSynth{completed("PCM")}}
	notifier := &fakeNotifier{}
	svc := NewSpeechService(staticSettings(testSettings()), factory, notifier, player, nil, discardLogger())

	s := svc.Speak(context.Background(), nil, SpeakOptions{Text: "hello"}, nil)
	if outcome := waitOutcome(t, s); !outcome.OK() {
		t.Fatalf("synthesis outcome should stay completed, got %+v", outcome)
	}

	notices := notifier.all()
	if len(notices) != 2 || notices[1].Severity != model.SeverityError || !strings.Contains(notices[1].Message, "no output device") {
		t.Fatalf("unexpected notices %+v", notices)
	}
}

func TestSessionResolvesOnce(t *testing.T) {
	s := newSession(func() {})
	if !s.resolve(model.Outcome{Status: model.StatusCompleted}) {
		t.Fatal("first resolve should take effect")
	}
	if s.resolve(model.Outcome{Status: model.StatusFailed}) {
		t.Fatal("second resolve should be ignored")
	}
	outcome, err := s.Wait(context.Background())
	if err != nil || outcome.Status != model.StatusCompleted {
		t.Fatalf("unexpected outcome %+v (err=%v)", outcome, err)
	}
}

func TestSessionWaitHonorsContext(t *testing.T) {
	s := newSession(func() {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSessionCloseNil(t *testing.T) {
	var s *Session
	s.Close()
	if !s.Abandon(time.Millisecond) {
		t.Fatal("abandoning a nil session should succeed")
	}
}
