package speech

import (
	"errors"
	"strings"

	speechmodel "github.com/zhouzirui/mood-fortune/backend/internal/model/speech"
)

var (
	ErrSpeechNotConfigured = errors.New("speech service is not configured")
	ErrMissingCredentials  = errors.New("speech config is missing AppID or AccessToken")
)

// resolveCredentials 返回规范化后的 AppID 与 AccessToken，缺失时给出明确错误。
func resolveCredentials(cfg *speechmodel.SpeechConfig) (string, string, error) {
	if cfg == nil {
		return "", "", ErrSpeechNotConfigured
	}

	appID := strings.TrimSpace(cfg.AppID)
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}

	if appID == "" || token == "" {
		return "", "", ErrMissingCredentials
	}
	return appID, token, nil
}
