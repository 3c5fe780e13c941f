package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"jobpilot/internal/domain/model"
)

const enrichmentSystemPrompt = `You are a recruiting analyst. You receive a job posting and a candidate
profile. Extract the posting's structured attributes and judge how well the
candidate fits. Respond with a single JSON object and nothing else, using
exactly these keys:
{"title": string, "company": string, "location_city": string,
 "location_type": "Remote"|"Hybrid"|"On-site"|"", "experience_level": string,
 "required_skills": [string], "employment_type": string, "salary_range": string,
 "good_fit": bool, "fit_score": number between 0 and 1, "fit_reasoning": string,
 "confidence": number between 0 and 1, "needs_review": bool}
Set needs_review when the posting is ambiguous or you are unsure.`

const answersSystemPrompt = `You are filling a job application form on behalf of a candidate. You
receive the form fields and the candidate profile. Answer every field you
can from the profile; never invent facts. Respond with a single JSON object
and nothing else, using exactly these keys:
{"answers": {field_id: string}, "field_scores": {field_id: number},
 "confidence": number between 0 and 1, "unanswered_fields": [string]}
List every field you could not answer in unanswered_fields and leave it out
of answers.`

func enrichmentUserPrompt(job *model.JobRecord, profile *model.CandidateProfile) string {
	var b strings.Builder
	b.WriteString("JOB POSTING\n")
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\nLocation: %s\n", job.Title, job.Company, job.LocationRaw)
	fmt.Fprintf(&b, "Description:\n%s\n\n", job.Description)
	writeProfile(&b, profile)
	return b.String()
}

func answersUserPrompt(fields []model.FieldSpec, job *model.JobRecord, profile *model.CandidateProfile) string {
	var b strings.Builder
	b.WriteString("FORM FIELDS\n")
	spec, _ := json.Marshal(fields)
	b.Write(spec)
	b.WriteString("\n\nJOB\n")
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\n\n", job.Title, job.Company)
	writeProfile(&b, profile)
	return b.String()
}

func writeProfile(b *strings.Builder, p *model.CandidateProfile) {
	if p == nil {
		return
	}
	b.WriteString("CANDIDATE PROFILE\n")
	fmt.Fprintf(b, "Name: %s\nTitle: %s\nLocation: %s\n", p.FullName, p.Title, p.Location)
	if p.Summary != "" {
		fmt.Fprintf(b, "Summary: %s\n", p.Summary)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(b, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	if p.WorkAuth != "" {
		fmt.Fprintf(b, "Work authorization: %s\n", p.WorkAuth)
	}
	if p.SalaryExp != "" {
		fmt.Fprintf(b, "Salary expectation: %s\n", p.SalaryExp)
	}
	if p.StartAvail != "" {
		fmt.Fprintf(b, "Start availability: %s\n", p.StartAvail)
	}
}

// decodeJSON tolerates markdown code fences around the model's JSON reply.
func decodeJSON(raw string, dst interface{}) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return json.Unmarshal([]byte(s), dst)
}
