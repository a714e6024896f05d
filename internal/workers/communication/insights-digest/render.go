package insightsdigest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var emailTemplate = template.Must(template.New("digest").Parse(`<html>
<body>
<h2>{{.Title}}</h2>
{{range .Sections}}<p><strong>{{.Question}}</strong><br>{{.Summary}}</p>
{{end}}{{if .AtRisk}}<p><em>{{.AtRisk}}</em></p>
{{end}}</body>
</html>`))

type emailView struct {
	Title    string
	Sections []DigestSection
	AtRisk   string
}

func renderEmail(title string, sections []DigestSection, atRisk string) (text, html string, err error) {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "%s\n%s\n\n", s.Question, s.Summary)
	}
	if atRisk != "" {
		b.WriteString(atRisk)
		b.WriteString("\n")
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, emailView{Title: title, Sections: sections, AtRisk: atRisk}); err != nil {
		return "", "", err
	}
	return b.String(), buf.String(), nil
}

func smsText(businessName string, atRiskCount int, summary string) string {
	prefix := "Heads up"
	if businessName != "" {
		prefix = businessName
	}
	msg := fmt.Sprintf("%s: %d customer(s) at risk. %s", prefix, atRiskCount, summary)
	if len(msg) > 160 {
		msg = msg[:157] + "..."
	}
	return msg
}
