package emotion

import (
	"math"
	"strings"
)

// Label 表示TTS可以接受的情绪标签。
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Excited  Label = "excited"
	Tender   Label = "tender"
	Comfort  Label = "comfort"
	Magnetic Label = "magnetic"
)

// Decision 给出情绪识别结果以及推荐情绪强度。
type Decision struct {
	Emotion Label
	Scale   float32
	Score   int
}

var keywordBuckets = map[Label][]string{
	Happy: {
		"enjoy", "glow", "good", "thank", "smile", "celebrate", "wins", "spark", "song", "colors",
		"grateful", "joy", "best",
	},
	Excited: {
		"momentum", "wave", "ride", "energy", "shake", "move with", "extra block",
	},
	Tender: {
		"gently", "softly", "slow", "slowly", "quiet", "calm", "warm", "blanket", "drift", "settle",
		"heavy", "tide", "unhurried",
	},
	Comfort: {
		"safe", "not alone", "carry this", "made it through", "hard", "allowed", "check in",
		"reach out", "you are here", "heavy",
	},
	Magnetic: {
		"focus", "task", "next step", "one thing", "timer", "write", "sticky note", "finish",
	},
}

var punctuationBoost = map[Label]int{
	Happy:   2,
	Excited: 3,
}

// moodEmotion maps the user's reported mood to the tone the voice should take
// when the message text itself carries no clear signal.
var moodEmotion = map[string]Label{
	"good":  Happy,
	"okay":  Neutral,
	"bad":   Tender,
	"awful": Comfort,
}

// Analyze 根据用户心情与待朗读文本推断语音情绪。
func Analyze(mood, text string) Decision {
	textScore := scoreText(text)

	finalScore := textScore
	moodLabel, known := moodEmotion[strings.ToLower(strings.TrimSpace(mood))]

	// 低落心情优先安抚：文本偏兴奋时也不放大情绪。
	if known && (moodLabel == Comfort || moodLabel == Tender) {
		switch finalScore.Emotion {
		case Happy, Excited, Neutral:
			finalScore = Decision{Emotion: moodLabel, Score: max(finalScore.Score, 3)}
		}
	}

	if finalScore.Score == 0 && known && moodLabel != Neutral {
		finalScore = Decision{Emotion: moodLabel, Score: 3}
	}

	if finalScore.Score == 0 {
		return Decision{Emotion: Neutral, Scale: 3, Score: 0}
	}

	scale := 2 + float32(finalScore.Score)/4
	if finalScore.Emotion == Excited {
		scale += 1
	}
	if finalScore.Emotion == Magnetic {
		scale = float32(math.Min(4.0, float64(scale)))
	}
	if finalScore.Emotion == Comfort || finalScore.Emotion == Tender {
		scale = float32(math.Min(3.5, float64(scale)))
	}

	if scale < 1 {
		scale = 1
	}
	if scale > 5 {
		scale = 5
	}

	return Decision{Emotion: finalScore.Emotion, Scale: scale, Score: finalScore.Score}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Emotion: Neutral, Scale: 0, Score: 0}
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Happy] += punctuationBoost[Happy]
		}
	}

	bestLabel := Neutral
	bestScore := 0
	for _, label := range []Label{Comfort, Tender, Happy, Excited, Magnetic} {
		if s := scores[label]; s > bestScore {
			bestScore = s
			bestLabel = label
		}
	}

	if bestScore == 0 {
		return Decision{Emotion: Neutral, Score: 0, Scale: 0}
	}

	return Decision{Emotion: bestLabel, Score: bestScore, Scale: 0}
}
