package ai

import "fmt"

// systemPrompt fixes the model's role, the five practice areas, and the exact
// output schema. It never varies between calls.
const systemPrompt = `You are an AI assistant for a law firm that identifies business opportunities in client communications.

Your task is to analyze communications and extract potential legal service opportunities.

Focus on these practice areas:
1. Real Estate (office leases, property transactions, zoning)
2. Employment Law (hiring, terminations, HR issues, contracts)
3. Mergers & Acquisitions (acquisitions, sales, due diligence)
4. Intellectual Property (trademarks, patents, copyright)
5. Litigation (lawsuits, disputes, arbitration)

For each opportunity:
- Be specific about what the client needs
- Base confidence on clarity and urgency
- Extract the exact text that indicates the need
- Estimate value if enough information is provided

Return ONLY valid JSON, no additional text.`

// userPromptTemplate embeds the client name and communication body and pins
// the response schema per call.
const userPromptTemplate = `Client: %s

Communication:
%s

Analyze this communication and identify any legal service opportunities.

Return a JSON object with this exact structure:
{
  "opportunities": [
    {
      "title": "Brief title (max 60 chars)",
      "description": "What the client needs",
      "type": "real_estate|employment_law|m&a|ip|litigation",
      "confidence": 85,
      "extracted_text": "Exact quote from communication",
      "estimated_value": "$20k-50k" (optional, only if you can estimate)
    }
  ]
}

Rules:
- Only include opportunities with confidence >= 40%%
- Maximum 5 opportunities per communication
- Be conservative with confidence scores
- If no opportunities found, return empty array
`

// buildUserPrompt renders the per-call instruction.
func buildUserPrompt(content, clientName string) string {
	return fmt.Sprintf(userPromptTemplate, clientName, content)
}
