// Package prompts renders the system prompts sent to the chat model.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Profile describes the person the assistant speaks for.
type Profile struct {
	Name      string
	ShortName string
	Title     string
	Location  string
}

// Assembler renders prompts for one profile. It is immutable and safe for concurrent use.
type Assembler struct {
	profile Profile
	chat    *template.Template
	jd      *template.Template
}

// NewAssembler parses the embedded templates. ShortName defaults to the first word of Name.
func NewAssembler(p Profile) (*Assembler, error) {
	if p.ShortName == "" {
		if fields := strings.Fields(p.Name); len(fields) > 0 {
			p.ShortName = fields[0]
		}
	}
	funcs := template.FuncMap{"upper": strings.ToUpper}
	chat, err := template.New("chat.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/chat.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse chat template: %w", err)
	}
	jd, err := template.New("jd.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/jd.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse jd template: %w", err)
	}
	return &Assembler{profile: p, chat: chat, jd: jd}, nil
}

// ChatPrompt returns the system prompt for a chat turn grounded on context.
// An empty context still yields a valid prompt.
func (a *Assembler) ChatPrompt(context string) string {
	return a.render(a.chat, map[string]any{
		"Profile": a.profile,
		"Context": strings.TrimSpace(context),
	})
}

// JDAnalysisPrompt returns the prompt comparing a job description with the resume.
func (a *Assembler) JDAnalysisPrompt(jdText, resume string) string {
	return a.render(a.jd, map[string]any{
		"Profile":        a.profile,
		"JobDescription": strings.TrimSpace(jdText),
		"Resume":         strings.TrimSpace(resume),
	})
}

func (a *Assembler) render(t *template.Template, data any) string {
	var buf bytes.Buffer
	// Templates are embedded and data is plain strings, so execution cannot fail at runtime.
	if err := t.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("prompts: render %s: %v", t.Name(), err))
	}
	return buf.String()
}
