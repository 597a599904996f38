package services

import (
	"bytes"
	"fmt"
	"image/color"
	"math/rand"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/storynest/storynest-backend/internal/pkg/logger"
)

// FallbackRenderer draws the placeholder illustration used when image
// generation fails for a scene. A story always ships with three images; a
// rendered placeholder keeps the reader experience intact while the audio
// and text are real.
type FallbackRenderer interface {
	Render(title string) ([]byte, error)
}

type fallbackRenderer struct {
	log      *logger.Logger
	fontFace font.Face
}

var fallbackPalette = []color.NRGBA{
	{R: 0x3E, G: 0x54, B: 0x8C, A: 0xFF},
	{R: 0x5B, G: 0x3E, B: 0x8C, A: 0xFF},
	{R: 0x2E, G: 0x6B, B: 0x6B, A: 0xFF},
	{R: 0x8C, G: 0x5A, B: 0x3E, A: 0xFF},
}

func NewFallbackRenderer(log *logger.Logger) (FallbackRenderer, error) {
	serviceLog := log.With("service", "FallbackRenderer")

	var face font.Face
	fontPath := strings.TrimSpace(os.Getenv("FALLBACK_FONT"))
	if fontPath != "" {
		f, err := loadFontFace(fontPath, 64)
		if err != nil {
			return nil, fmt.Errorf("could not load fallback font: %w", err)
		}
		face = f
	} else {
		serviceLog.Warn("FALLBACK_FONT not set, placeholder images render without text")
	}

	return &fallbackRenderer{log: serviceLog, fontFace: face}, nil
}

func (fr *fallbackRenderer) Render(title string) ([]byte, error) {
	const size = 1024

	dc := gg.NewContext(size, size)

	base := fallbackPalette[rand.Intn(len(fallbackPalette))]
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, size, size)
	dc.Fill()

	// Night-sky dressing: a moon and a scatter of stars.
	dc.SetColor(color.NRGBA{R: 0xF5, G: 0xF0, B: 0xD8, A: 0xFF})
	dc.DrawCircle(size*0.78, size*0.2, size*0.09)
	dc.Fill()
	for i := 0; i < 40; i++ {
		x := rand.Float64() * size
		y := rand.Float64() * size * 0.6
		dc.DrawCircle(x, y, 1.5+rand.Float64()*2)
		dc.Fill()
	}

	if fr.fontFace != nil && strings.TrimSpace(title) != "" {
		dc.SetFontFace(fr.fontFace)
		dc.SetColor(color.White)
		dc.DrawStringWrapped(title, size/2, size*0.72, 0.5, 0.5, size*0.8, 1.4, gg.AlignCenter)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
