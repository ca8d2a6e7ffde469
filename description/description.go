// Package description writes the marketing copy shown for an imported coffee shop.
package description

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	temperature     = 0.7
	maxOutputTokens = 300
	topReviewCount  = 3
)

const systemPrompt = "Eres un experto en marketing de cafeterías que crea descripciones atractivas y acogedoras."

const promptTemplate = `Genera una descripción atractiva y concisa (máximo 150 palabras) en español para la siguiente cafetería. La descripción debe ser acogedora, destacar lo especial del lugar y motivar a los usuarios a visitarla.

Nombre: %s
Ubicación: %s
Calificación: %s

Algunas reseñas de clientes:
%s

Instrucciones:
- Usa un tono amigable y acogedor
- Destaca los aspectos positivos mencionados en las reseñas
- Si es posible, menciona la atmósfera o especialidades del lugar
- Mantén la descripción entre 80-150 palabras
- No uses emojis
- Escribe en tercera persona`

type Review struct {
	Rating int
	Text   string
}

// ShopInfo is what the description is written from.
type ShopInfo struct {
	Name    string
	Address string
	Rating  float64
	Reviews []Review
}

// Request is a single completion request to a language model.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// Model generates text.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Generator struct {
	model  Model
	logger *zap.Logger
}

// NewGenerator returns a Generator. A nil model makes it always return the
// default description.
func NewGenerator(model Model, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{model: model, logger: logger}
}

// Describe never fails: model errors and empty replies yield DefaultDescription.
func (g *Generator) Describe(ctx context.Context, info ShopInfo) string {
	if g.model == nil {
		return DefaultDescription(info)
	}

	text, err := g.model.Generate(ctx, Request{
		System:      systemPrompt,
		Prompt:      Prompt(info),
		Temperature: temperature,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		g.logger.Warn("description generation failed, using default", zap.String("shop", info.Name), zap.Error(err))

		return DefaultDescription(info)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return DefaultDescription(info)
	}

	return text
}

// Prompt builds the user prompt for info.
func Prompt(info ShopInfo) string {
	rating := "Sin calificación"
	if info.Rating > 0 {
		rating = formatRating(info.Rating) + "/5 estrellas"
	}

	return fmt.Sprintf(promptTemplate, info.Name, info.Address, rating, topReviews(info.Reviews))
}

// DefaultDescription is the deterministic description used without a model.
func DefaultDescription(info ShopInfo) string {
	prefix := ""
	if info.Rating > 0 {
		prefix = "Con una calificación de " + formatRating(info.Rating) + "/5 estrellas, "
	}

	return prefix + info.Name + " es una cafetería ubicada en " + info.Address +
		". Un lugar acogedor para disfrutar de un buen café y pasar un momento agradable."
}

func topReviews(reviews []Review) string {
	if len(reviews) == 0 {
		return "Sin reseñas disponibles"
	}

	sorted := slices.Clone(reviews)
	slices.SortStableFunc(sorted, func(a, b Review) int {
		return b.Rating - a.Rating
	})

	texts := make([]string, 0, topReviewCount)
	for _, r := range sorted[:min(topReviewCount, len(sorted))] {
		texts = append(texts, r.Text)
	}

	return strings.Join(texts, "\n")
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
