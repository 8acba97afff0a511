package speech

// TTSRequest 语音合成请求
type TTSRequest struct {
	SessionID    string  `json:"sessionId"`
	Text         string  `json:"text"`
	Voice        string  `json:"voice"`    // 声音类型或别名
	Speed        float32 `json:"speed"`    // 语速倍率 0.5-2.0
	Volume       float32 `json:"volume"`   // 音量 0.0-1.0
	Format       string  `json:"format"`   // mp3, ogg_opus, pcm
	Language     string  `json:"language"` // en-US, zh-CN, etc.
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotionScale,omitempty"`
}

// DeliveryRequest asks for a chosen message to be spoken.
type DeliveryRequest struct {
	ProfileID  string  `json:"profileId"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Mood       string  `json:"mood,omitempty"`
	ActionType string  `json:"actionType,omitempty"`
	Voice      string  `json:"voice,omitempty"`
	Speed      float32 `json:"speed,omitempty"`
	Volume     float32 `json:"volume,omitempty"`
	Format     string  `json:"format,omitempty"`
	Language   string  `json:"language,omitempty"`
}
