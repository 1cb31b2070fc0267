package pipeline

import (
	"fmt"
	"strings"
	"time"

	"videosumapi/media"
)

// ProcessingResult is the final artifact for one successfully processed
// video. Immutable once constructed.
type ProcessingResult struct {
	VideoPath           string          `json:"video_path"`
	VideoInfo           media.VideoInfo `json:"video_info"`
	Transcript          string          `json:"transcript"`
	Summary             string          `json:"summary"`
	ProcessedAt         time.Time       `json:"processed_at"`
	AIProvider          string          `json:"ai_provider"`
	TranscriptionMethod string          `json:"transcription_method"`
	OutputFile          string          `json:"output_file"`
}

const (
	sectionRule     = "=================================================="
	subsectionRule  = "------------------------------"
	transcriptLabel = "TRANSCRIPCIÓN COMPLETA:"
	summaryLabel    = "RESUMEN GENERADO:"
)

// formatResultContent renders the persisted summary file. The layout is
// fixed: parseResultContent must be able to read back the transcript and
// summary without loss.
func formatResultContent(r *ProcessingResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RESUMEN DE VIDEO\n%s\n\n", sectionRule)

	fmt.Fprintf(&b, "INFORMACIÓN DEL VIDEO:\n")
	fmt.Fprintf(&b, "- Archivo: %s\n", strings.ToUpper(r.VideoInfo.Format))
	fmt.Fprintf(&b, "- Duración: %.2f segundos\n", r.VideoInfo.Duration)
	fmt.Fprintf(&b, "- Tamaño: %.2f MB\n", r.VideoInfo.SizeMB)
	fmt.Fprintf(&b, "- Resolución: %dx%d\n", r.VideoInfo.Width, r.VideoInfo.Height)
	fmt.Fprintf(&b, "- FPS: %g\n\n", r.VideoInfo.FPS)

	fmt.Fprintf(&b, "CONFIGURACIÓN:\n")
	fmt.Fprintf(&b, "- Proveedor de IA: %s\n", strings.ToUpper(r.AIProvider))
	fmt.Fprintf(&b, "- Modelo de transcripción: %s\n", strings.ToUpper(r.TranscriptionMethod))
	fmt.Fprintf(&b, "- Procesado el: %s\n\n", r.ProcessedAt.Format(time.RFC3339))

	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", transcriptLabel, subsectionRule, r.Transcript)
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", summaryLabel, subsectionRule, r.Summary)
	b.WriteString(sectionRule)

	return b.String()
}

// parseResultContent recovers the transcript and summary from a persisted
// summary file.
func parseResultContent(content string) (transcript, summary string, err error) {
	tStart := strings.Index(content, transcriptLabel+"\n"+subsectionRule+"\n")
	sStart := strings.Index(content, summaryLabel+"\n"+subsectionRule+"\n")
	if tStart < 0 || sStart < 0 || sStart < tStart {
		return "", "", fmt.Errorf("malformed summary file")
	}

	tStart += len(transcriptLabel) + len(subsectionRule) + 2
	transcript = strings.TrimSuffix(content[tStart:sStart], "\n\n")

	sStart += len(summaryLabel) + len(subsectionRule) + 2
	summary = strings.TrimSuffix(strings.TrimSuffix(content[sStart:], sectionRule), "\n\n")

	return transcript, summary, nil
}
