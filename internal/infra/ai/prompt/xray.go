package prompt

import (
	"fmt"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/ai"
)

// ProbeMessage is sent by the connection test.
const ProbeMessage = `Hello, this is a test message. Please respond with "Connection successful" if you can read this.`

// XRayPrompt builds the instruction text sent alongside the radiograph. The
// section headers here are the canonical ones the report parser looks for.
func XRayPrompt(p ai.PatientContext) string {
	return fmt.Sprintf(`You are a PhD-level odontologist with 20+ years of experience in dental radiology.

Please analyze this dental X-ray image and provide a comprehensive odontological report following this structure:

PATIENT INFORMATION:
- Patient ID: %d
- Name: %s
- Age: %s
- Gender: %s

RADIOGRAPHIC FINDINGS:
- Image quality assessment
- Anatomical structures identification
- Pathological findings
- Dental conditions observed

DIAGNOSIS:
- Primary diagnosis
- Secondary findings
- Differential diagnosis if applicable

TREATMENT RECOMMENDATIONS:
- Immediate actions required
- Treatment plan
- Follow-up recommendations

TECHNICAL NOTES:
- Radiographic technique assessment
- Image quality notes
- Additional imaging recommendations if needed

Please provide the report in professional odontological language suitable for medical records.`,
		p.PatientID, orUnknown(p.Name), orUnknown(p.Age), orUnknown(p.Gender))
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
