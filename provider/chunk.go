package provider

import (
	"context"
	"fmt"
	"strings"

	"videosumapi/media"
)

const systemPrompt = "Eres un experto en análisis de contenido multimedia. Crea resúmenes claros y estructurados."

const chunkPrompt = `Analiza la siguiente parte %d/%d de la transcripción de un video y crea un resumen en español.

Información del video:
- Duración: %.2f segundos
- Formato: %s
- Tamaño: %.2f MB

Transcripción (parte %d/%d):
%s

Crea un resumen estructurado que incluya:
1. Tema principal de esta parte
2. Puntos clave discutidos
3. Información importante

Resumen:`

const combinePrompt = `Combina los siguientes resúmenes de partes de un video en un resumen final coherente en español:

%s

Crea un resumen final estructurado que incluya:
1. Tema principal del video completo
2. Puntos clave discutidos
3. Conclusiones importantes
4. Palabras clave relevantes

Resumen final:`

// generateFunc is one model round-trip: prompt in, generated text out.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// summarizeChunked implements the two-pass map-reduce strategy shared by all
// remote backends: split the transcript into fixed-size character chunks,
// summarize each with positional context, then combine. A single chunk is
// returned directly without a combining call.
func summarizeChunked(ctx context.Context, transcript string, info media.VideoInfo, chunkSize int, generate generateFunc) (string, error) {
	chunks := splitChunks(transcript, chunkSize)
	total := len(chunks)

	summaries := make([]string, 0, total)
	for i, chunk := range chunks {
		prompt := fmt.Sprintf(chunkPrompt,
			i+1, total,
			info.Duration, info.Format, info.SizeMB,
			i+1, total,
			chunk,
		)
		summary, err := generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("summarize part %d/%d: %w", i+1, total, err)
		}
		summaries = append(summaries, strings.TrimSpace(summary))
	}

	if len(summaries) == 1 {
		return summaries[0], nil
	}

	labeled := make([]string, len(summaries))
	for i, summary := range summaries {
		labeled[i] = fmt.Sprintf("Parte %d: %s", i+1, summary)
	}

	final, err := generate(ctx, fmt.Sprintf(combinePrompt, strings.Join(labeled, "\n")))
	if err != nil {
		return "", fmt.Errorf("combine %d partial summaries: %w", len(summaries), err)
	}
	return strings.TrimSpace(final), nil
}

// splitChunks cuts text into fixed-size character chunks. No attempt is made
// to align on sentence or word boundaries.
func splitChunks(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
