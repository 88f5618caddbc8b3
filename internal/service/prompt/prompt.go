// Package prompt assembles the instructions sent to the generation models.
package prompt

import (
	"fmt"
	"strings"

	"ai-voice-query-service/internal/models"
)

const persona = `You are an agricultural scientist advising smallholder farmers in the Coimbatore and Wayanad region. Answer with hard data first and warmth second.`

const reasoning = `Before answering, work through these steps silently:
1. Identify the crop and the soil. Name the soil precisely (red loam, black cotton, gravelly, laterite). If the soil is unclear, ask which one it is.
2. Find the crop in the knowledge base and take its exact N, P and K values in kg/acre with the dosage schedule.
3. Put the data into the farmer's own spoken dialect.

If the crop is not in the knowledge base, say it does not suit the local climate and suggest a local crop that does, with that crop's NPK values from the knowledge base. Never invent values.

Every answer must contain at least one specific number from the knowledge base (kg/acre, %, ratio, mm). Avoid filler such as "generally" or "it is recommended". If you cannot ground an answer, ask which crop and how many acres.

Structure: a short local greeting tied to the soil, then the numbers, then one closing question about the farm. Maximum 150 words.
Reply only in the farmer's script. No JSON, no quotes, no code blocks, no English field labels.`

// System builds the system prompt around the selected knowledge context.
// loc may be nil.
func System(context string, loc *models.Location, lang models.Language) string {
	var b strings.Builder

	b.WriteString(persona)
	b.WriteString("\n\n=== KNOWLEDGE BASE (TNAU/KAU) ===\n")
	b.WriteString(strings.TrimSpace(context))
	b.WriteString("\n=== END KNOWLEDGE BASE ===\n\n")
	b.WriteString(reasoning)

	if rules := dialectRules(lang); rules != "" {
		b.WriteString("\n\n")
		b.WriteString(rules)
	}
	if line := LocationLine(loc); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

// RaceUser is the user turn for the primary/secondary race.
func RaceUser(transcript string, lang models.Language) string {
	return fmt.Sprintf(
		"%s\n\nFarmer's question: %q\n\nUse the knowledge base to give certified, region-specific advice in under 60 words, in the farmer's dialect. Do not use JSON.",
		languageInstruction(lang), transcript,
	)
}

// FastUser is the shorter user turn for greetings and small talk.
func FastUser(transcript string, lang models.Language) string {
	return fmt.Sprintf(
		"You are a quick local farm expert. Answer in two blunt sentences.\n\n%s\n\nFarmer's question: %q\n\nReply in the farmer's dialect. Do not use JSON.",
		languageInstruction(lang), transcript,
	)
}

// LocationLine describes the farmer's district, or returns "" for nil.
func LocationLine(loc *models.Location) string {
	if loc == nil || loc.Name == "" {
		return ""
	}
	return fmt.Sprintf("Farmer's location: %s. Soil: %s. Avg rainfall: %.0fmm.", loc.Name, loc.SoilType, loc.AvgRainfallMM)
}

func languageInstruction(lang models.Language) string {
	switch lang {
	case models.Tamil:
		return "IMPORTANT: Reply only in spoken Kongu Tamil as used around Coimbatore, with forms like வச்சிருக்கீங்க and பண்றீங்க and the polite ங்க ending. No formal Tamil, no English sentences, Tamil script only."
	case models.Malayalam:
		return "IMPORTANT: Reply in conversational Kerala Malayalam. Use English only for technical terms that have no common Malayalam word."
	default:
		return "Reply in simple English that a rural farmer can follow."
	}
}

func dialectRules(lang models.Language) string {
	switch lang {
	case models.Tamil:
		return `DIALECT:
- Speak as a respected elder farmer (பெரியவர்) from Coimbatore, in Kongu Tamil only.
- Prefer வச்சிருக்கீங்க over வைத்துள்ளீர்கள், பண்றீங்க over செய்கிறீர்கள், போடுங்க over போடுங்கள்.
- Close sentences with the ங்க suffix: சொல்றேனுங்க, பாருங்க, குடுங்க.
- Mention local places where natural: நொய்யல் basin, கொங்கு நாடு.
- Name deficiencies the local way: துத்தநாகம் / போரான் பற்றாக்குறை, சிவப்பு மண்.
- Keep English technical words to a minimum.`
	case models.Malayalam:
		return `DIALECT:
- Speak as a local farm expert from Wayanad, in conversational Kerala Malayalam.
- Refer to laterite soil, monsoon patterns and the Western Ghats where relevant.`
	default:
		return ""
	}
}
