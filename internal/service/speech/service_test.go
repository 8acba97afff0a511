package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/mood-fortune/backend/internal/model/speech"
)

type recordingSynth struct {
	last *speech.TTSRequest
	err  error
}

func (r *recordingSynth) Synthesize(_ context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	r.last = req
	if r.err != nil {
		return nil, r.err
	}
	return &speech.TTSResponse{SessionID: req.SessionID, AudioData: []byte("ok"), Format: "mp3", CreatedAt: time.Now()}, nil
}

func TestDeliverComposesTextAndVoice(t *testing.T) {
	synth := &recordingSynth{}
	svc := &Service{config: &speech.SpeechConfig{TTSVoice: "en_male_sylus_emo_v2_mars_bigtts"}, tts: synth}

	_, err := svc.Deliver(context.Background(), speech.DeliveryRequest{
		ProfileID:  "p1",
		Title:      "Soft landing",
		Message:    "Let your shoulders drop slowly.",
		Mood:       "awful",
		ActionType: "BREATHE",
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	got := synth.last
	if got.Text != "Soft landing. Let your shoulders drop slowly." {
		t.Fatalf("text = %q", got.Text)
	}
	if got.Voice != VoiceGentle {
		t.Fatalf("voice = %s, want %s", got.Voice, VoiceGentle)
	}
	if got.Speed != 0.9 {
		t.Fatalf("breathing practice should slow down, speed = %v", got.Speed)
	}
	if got.Emotion != "comfort" && got.Emotion != "tender" {
		t.Fatalf("low mood should carry a soft emotion, got %q", got.Emotion)
	}
	if got.SessionID != "p1" {
		t.Fatalf("session = %s", got.SessionID)
	}
}

func TestDeliverUsesExplicitVoiceAndConfigFallback(t *testing.T) {
	synth := &recordingSynth{}
	svc := &Service{config: &speech.SpeechConfig{TTSVoice: "configured"}, tts: synth}

	if _, err := svc.Deliver(context.Background(), speech.DeliveryRequest{Message: "Go.", Voice: "bright", Speed: 1.1}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if synth.last.Voice != "bright" || synth.last.Speed != 1.1 {
		t.Fatalf("explicit voice/speed not kept: %+v", synth.last)
	}

	if _, err := svc.Deliver(context.Background(), speech.DeliveryRequest{Message: "Go.", Mood: "unknown"}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if synth.last.Voice != "configured" {
		t.Fatalf("voice = %s, want configured", synth.last.Voice)
	}
}

func TestDeliverRejectsEmptyText(t *testing.T) {
	svc := &Service{tts: &recordingSynth{}}
	if _, err := svc.Deliver(context.Background(), speech.DeliveryRequest{Title: " ", Message: ""}); !errors.Is(err, ErrNothingToSay) {
		t.Fatalf("err = %v, want ErrNothingToSay", err)
	}
}

func TestDeliverPropagatesSynthesisError(t *testing.T) {
	boom := errors.New("boom")
	svc := &Service{tts: &recordingSynth{err: boom}}
	if _, err := svc.Deliver(context.Background(), speech.DeliveryRequest{Message: "hi"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}
