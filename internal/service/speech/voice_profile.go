package speech

import (
	"strings"

	"github.com/zhouzirui/mood-fortune/backend/internal/analysis/emotion"
)

// 语音别名，客户端只需要传别名，具体 speaker 由服务端决定。
const (
	VoiceBright = "bright"
	VoiceSteady = "steady"
	VoiceWarm   = "warm"
	VoiceGentle = "gentle"
	VoiceSleepy = "sleepy"
)

var voiceAliases = map[string]string{
	VoiceBright: "en_female_skye_emo_v2_mars_bigtts",
	VoiceSteady: "en_female_amy_jupiter_bigtts",
	VoiceWarm:   "en_male_glen_emo_v2_mars_bigtts",
	VoiceGentle: "en_female_candice_emo_v2_mars_bigtts",
	VoiceSleepy: "en_male_corey_emo_v2_mars_bigtts",
	"default":   "en_female_amy_jupiter_bigtts",
}

var moodVoices = map[string]string{
	"good":  VoiceBright,
	"okay":  VoiceSteady,
	"bad":   VoiceWarm,
	"awful": VoiceGentle,
}

// NormalizeVoiceAlias 把别名解析为具体 speaker，未知值原样返回（去掉首尾空白）。
func NormalizeVoiceAlias(voice string) string {
	voice = strings.TrimSpace(voice)
	if mapped, ok := voiceAliases[strings.ToLower(voice)]; ok {
		return mapped
	}
	return voice
}

// VoiceForMood 返回心情对应的语音别名；未知心情返回空串，交给配置的默认语音。
func VoiceForMood(mood string) string {
	return moodVoices[strings.ToLower(strings.TrimSpace(mood))]
}

var defaultEmotionLabels = map[emotion.Label]string{
	emotion.Happy:    "happy",
	emotion.Sad:      "sad",
	emotion.Excited:  "excited",
	emotion.Tender:   "tender",
	emotion.Comfort:  "comfort",
	emotion.Magnetic: "magnetic",
}

var emotionVoiceWhitelist = map[string]struct{}{
	"en_female_candice_emo_v2_mars_bigtts": {},
	"en_female_skye_emo_v2_mars_bigtts":    {},
	"en_male_glen_emo_v2_mars_bigtts":      {},
	"en_male_sylus_emo_v2_mars_bigtts":     {},
	"en_male_corey_emo_v2_mars_bigtts":     {},
}

// ComputeEmotionParameters 根据语音与情绪分析结果计算TTS情绪参数。
func ComputeEmotionParameters(voice string, decision emotion.Decision) (enable bool, label string, scale float32) {
	if decision.Emotion == emotion.Neutral || decision.Score <= 0 {
		return false, "", 0
	}

	if !supportsEmotion(NormalizeVoiceAlias(voice)) {
		return false, "", 0
	}

	mapped, ok := defaultEmotionLabels[decision.Emotion]
	if !ok {
		return false, "", 0
	}

	scale = decision.Scale
	if scale <= 0 {
		scale = 3
	}
	if scale < 1 {
		scale = 1
	}
	if scale > 5 {
		scale = 5
	}

	return true, mapped, scale
}

func supportsEmotion(voice string) bool {
	normalized := strings.ToLower(strings.TrimSpace(voice))
	if normalized == "" {
		return false
	}

	if _, ok := emotionVoiceWhitelist[normalized]; ok {
		return true
	}

	return strings.Contains(normalized, "_emo_")
}
