package services

import (
	"strings"
	"testing"

	"github.com/storynest/storynest-backend/internal/domain"
)

func testCatalog() *domain.EntityCatalog {
	return &domain.EntityCatalog{Entities: []domain.Entity{
		{Name: "Mira", Kind: domain.EntityKindCharacter, Description: "A girl in a yellow raincoat"},
		{Name: "Pip the Fox", Kind: domain.EntityKindCharacter, Description: "An orange fox with a blue scarf."},
	}}
}

func TestStylePrefixStable(t *testing.T) {
	pc := NewPromptCompiler()
	catalog := testCatalog()

	a := pc.StylePrefix(catalog)
	b := pc.StylePrefix(catalog)
	if a != b {
		t.Fatalf("prefix not stable:\n%s\n%s", a, b)
	}
	if !strings.Contains(a, "Mira: A girl in a yellow raincoat.") {
		t.Fatalf("prefix missing entity description: %s", a)
	}
	if strings.Contains(a, "scarf..") {
		t.Fatalf("double period in prefix: %s", a)
	}
}

func TestCompileSharesPrefixAcrossScenes(t *testing.T) {
	pc := NewPromptCompiler()
	catalog := testCatalog()
	content := &domain.StoryContent{
		Title: "T",
		Scenes: []domain.Scene{
			{Sequence: 1, Narration: "Mira walks.", Description: "Mira walking down a path.", KeyElements: []string{"Mira"}},
			{Sequence: 2, Narration: "Pip waves.", Description: "Pip the Fox waving a paw.", KeyElements: []string{"Pip the Fox"}},
			{Sequence: 3, Narration: "They hug.", Description: "Mira hugging Pip the Fox.", KeyElements: []string{"Mira", "Pip the Fox"}},
		},
	}

	prompted := pc.CompileAll(content, catalog)
	if len(prompted) != 3 {
		t.Fatalf("prompted count: %d", len(prompted))
	}
	prefix := pc.StylePrefix(catalog)
	for _, ps := range prompted {
		if !strings.HasPrefix(ps.Prompt, prefix) {
			t.Fatalf("scene %d prompt missing shared prefix", ps.Scene.Sequence)
		}
		if !strings.Contains(ps.Prompt, ps.Scene.Description) {
			t.Fatalf("scene %d prompt missing scene description", ps.Scene.Sequence)
		}
	}
	if prompted[2].Prompt == prompted[1].Prompt {
		t.Fatalf("distinct scenes produced identical prompts")
	}
}

func TestCompileIdempotent(t *testing.T) {
	pc := NewPromptCompiler()
	catalog := testCatalog()
	scene := domain.Scene{Sequence: 1, Narration: "Mira walks.", Description: "Mira walking down a path.", KeyElements: []string{"Mira"}}
	prefix := pc.StylePrefix(catalog)

	first := pc.Compile(prefix, scene, catalog)
	second := pc.Compile(prefix, scene, catalog)
	if first.Prompt != second.Prompt {
		t.Fatalf("compile not idempotent:\n%s\n%s", first.Prompt, second.Prompt)
	}
	// Compiling never rewrites the scene itself.
	if first.Scene.Narration != scene.Narration || first.Scene.Description != scene.Description {
		t.Fatalf("scene mutated by compile")
	}
}

func TestCompileCapsPromptLength(t *testing.T) {
	pc := NewPromptCompiler()
	catalog := testCatalog()
	scene := domain.Scene{
		Sequence:    1,
		Narration:   "Mira walks.",
		Description: strings.Repeat("very long scene description ", 100),
	}

	ps := pc.Compile(pc.StylePrefix(catalog), scene, catalog)
	if got := len(strings.Fields(ps.Prompt)); got > maxPromptWords {
		t.Fatalf("prompt has %d words, cap is %d", got, maxPromptWords)
	}
	// The style prefix survives the cap; the tail is what gets cut.
	if !strings.HasPrefix(ps.Prompt, illustrationStyle) {
		t.Fatalf("cap removed the style prefix")
	}
}
