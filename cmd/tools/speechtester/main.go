package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/mood-fortune/backend/internal/config"
	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	speechmodel "github.com/zhouzirui/mood-fortune/backend/internal/model/speech"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] .env not loaded, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.Speech.Enabled {
		log.Fatal("speech is not configured: set SPEECH_APP_ID and SPEECH_ACCESS_TOKEN (or ARK_API_KEY)")
	}

	libName := flag.String("library", "fortune", "content library to draw from")
	mood := flag.String("mood", "", "mood to draw with; empty uses -text")
	ctxName := flag.String("context", "", "context to draw with")
	text := flag.String("text", "", "free text to speak instead of a drawn message")
	outputPath := flag.String("out", "", "output audio file (default derived from format)")
	format := flag.String("format", "mp3", "output audio format")
	language := flag.String("lang", "", "language code, defaults to SPEECH_TTS_LANGUAGE")
	voice := flag.String("voice", "", "voice alias or speaker id, defaults to the mood voice")
	session := flag.String("session", "", "session id, generated when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")

	flag.Parse()

	sessionID := *session
	if sessionID == "" {
		sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
	}

	req := speechmodel.DeliveryRequest{
		ProfileID: sessionID,
		Mood:      *mood,
		Voice:     *voice,
		Format:    *format,
		Language:  *language,
	}

	if strings.TrimSpace(*text) != "" {
		req.Message = *text
	} else {
		msg, err := drawMessage(*libName, *mood, *ctxName)
		if err != nil {
			log.Fatal(err)
		}
		req.Title = msg.Title
		req.Message = msg.Message
		req.ActionType = string(msg.ActionType)
		log.Printf("drew %s/%s audio=%d: %s", *mood, *ctxName, msg.AudioIndex, msg.Selected().SpokenText())
	}

	if *outputPath == "" {
		*outputPath = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), *format)
	}

	svc := speech.NewService(cfg.Speech.Model())
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Printf("starting TTS: session=%s voice=%q format=%s", sessionID, req.Voice, req.Format)
	resp, err := svc.Deliver(ctx, req)
	if err != nil {
		log.Fatalf("TTS failed: %v", err)
	}

	if err := os.WriteFile(*outputPath, resp.AudioData, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("TTS done: file=%s voice=%s emotion=%s duration=%dms", *outputPath, resp.Voice, resp.Emotion, resp.Duration)
}

func drawMessage(libName, mood, ctxName string) (content.Message, error) {
	if mood == "" || ctxName == "" {
		return content.Message{}, fmt.Errorf("either -text or both -mood and -context are required")
	}

	libs, err := library.LoadEmbedded()
	if err != nil {
		return content.Message{}, err
	}
	lib, ok := library.NewRegistry(libs...).FindByName(libName)
	if !ok {
		return content.Message{}, fmt.Errorf("library %q not found", libName)
	}

	msg, ok := selection.NewEngine(lib, nil).RandomMessage(content.Mood(mood), content.Context(ctxName), nil)
	if !ok {
		return content.Message{}, fmt.Errorf("no content for %s/%s in %s", mood, ctxName, libName)
	}
	return msg, nil
}
