package session

import (
	"fmt"

	"github.com/manash/cyberedit/pkg/models"
)

const LicenseKey = "CYBER-AI-2077-PREMIUM"

const instructionTemplate = "Edit this photo. Follow this instruction: %s. " +
	"CRITICAL: The face of the person in the original image MUST be preserved perfectly. Do not change the face. " +
	"Output an ultra-realistic, photo-quality image with %s sharpness, HDR lighting, natural skin texture, and detailed eyes/hair."

// BuildInstruction embeds a prompt and quality tier in the edit template
// that asks the service to keep the subject's face unchanged.
func BuildInstruction(prompt string, quality models.QualityTier) string {
	return fmt.Sprintf(instructionTemplate, prompt, quality)
}
