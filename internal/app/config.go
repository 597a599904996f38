package app

import (
	"github.com/storynest/storynest-backend/internal/pkg/logger"
	"github.com/storynest/storynest-backend/internal/utils"
)

type Config struct {
	JWTSecretKey string

	MediaStorageMode string
	MediaLocalDir    string
	MediaBaseURL     string

	SpeechVoice string

	SignupCreditGrant int
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		JWTSecretKey:      utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		MediaStorageMode:  utils.GetEnv("MEDIA_STORAGE_MODE", "local", log),
		MediaLocalDir:     utils.GetEnv("MEDIA_LOCAL_DIR", "./media", log),
		MediaBaseURL:      utils.GetEnv("MEDIA_BASE_URL", "http://localhost:8080/media", log),
		SpeechVoice:       utils.GetEnv("OPENAI_SPEECH_VOICE", "nova", log),
		SignupCreditGrant: utils.GetEnvAsInt("SIGNUP_CREDIT_GRANT", 3, log),
	}
}
