package services

import (
	"github.com/storynest/storynest-backend/internal/clients/openai"
	"github.com/storynest/storynest-backend/internal/storage"
)

type OpenAIClient = openai.Client
type ImageGeneration = openai.ImageGeneration
type SpeechGeneration = openai.SpeechGeneration

type MediaStore = storage.MediaStore
