package services

import (
	"fmt"
	"strings"

	"github.com/storynest/storynest-backend/internal/domain"
)

// Illustration prompts stay under this many words so image models don't
// truncate the style prefix.
const maxPromptWords = 200

const illustrationStyle = "Children's picture book illustration, soft watercolor, warm colors, gentle rounded shapes, no text."

// PromptCompiler turns scenes into illustration prompts. The style and entity
// prefix is computed once per story and shared by every scene prompt, so the
// image model renders recurring entities consistently.
type PromptCompiler interface {
	StylePrefix(catalog *domain.EntityCatalog) string
	Compile(prefix string, scene domain.Scene, catalog *domain.EntityCatalog) domain.PromptedScene
	CompileAll(content *domain.StoryContent, catalog *domain.EntityCatalog) []domain.PromptedScene
}

type promptCompiler struct{}

func NewPromptCompiler() PromptCompiler {
	return &promptCompiler{}
}

// StylePrefix is deterministic for a given catalog: same entities in, same
// prefix out. Catalog order is the model's order and is already fixed by the
// time prompts compile.
func (pc *promptCompiler) StylePrefix(catalog *domain.EntityCatalog) string {
	var b strings.Builder
	b.WriteString(illustrationStyle)
	for _, e := range catalog.Entities {
		fmt.Fprintf(&b, " %s: %s.", e.Name, strings.TrimRight(strings.TrimSpace(e.Description), "."))
	}
	return b.String()
}

func (pc *promptCompiler) Compile(prefix string, scene domain.Scene, catalog *domain.EntityCatalog) domain.PromptedScene {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" Scene: ")
	b.WriteString(strings.TrimSpace(scene.Description))
	if len(scene.KeyElements) > 0 {
		b.WriteString(" Must include: ")
		b.WriteString(strings.Join(scene.KeyElements, ", "))
		b.WriteString(".")
	}

	return domain.PromptedScene{
		Scene:  scene,
		Prompt: capWords(b.String(), maxPromptWords),
	}
}

func (pc *promptCompiler) CompileAll(content *domain.StoryContent, catalog *domain.EntityCatalog) []domain.PromptedScene {
	prefix := pc.StylePrefix(catalog)
	out := make([]domain.PromptedScene, 0, len(content.Scenes))
	for _, scene := range content.Scenes {
		out = append(out, pc.Compile(prefix, scene, catalog))
	}
	return out
}

func capWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
