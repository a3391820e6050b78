// Package reply drafts a host response to a guest review.
package reply

import (
	"strings"

	"review_monitor/internal/classify"
	"review_monitor/internal/domain"
)

const DefaultGuest = "Huésped"

type Synthesizer struct {
	cls *classify.Classifier
}

func New(cls *classify.Classifier) *Synthesizer { return &Synthesizer{cls: cls} }

// Generate is deterministic for a given text, platform and guest name.
func (s *Synthesizer) Generate(text string, p domain.Platform, guest string) string {
	guest = strings.TrimSpace(guest)
	if guest == "" {
		guest = DefaultGuest
	}
	greeting := "Estimado/a"
	if p == domain.Airbnb {
		greeting = "Hola,"
	}

	var pos, neg string
	for _, t := range s.cls.Analyze(text) {
		switch {
		case t.Polarity == classify.Negative && neg == "":
			neg = t.Category
		case t.Polarity == classify.Positive && pos == "":
			pos = t.Category
		}
	}

	var b strings.Builder
	b.WriteString(greeting + " " + guest + ",\n\n")

	if pos == "" && neg == "" {
		b.WriteString("Muchas gracias por tu visita y por tomarte el tiempo de dejarnos una valoración. ")
		b.WriteString("Esperamos verte pronto de nuevo.\n\nSaludos cordiales.")
		return b.String()
	}

	if neg != "" {
		b.WriteString("Lamentamos profundamente que tu experiencia con " + strings.ToLower(neg) + " no haya sido perfecta. ")
		b.WriteString("Tomamos nota inmediata para revisarlo con nuestro equipo. ")
		b.WriteString("Queremos ofrecer siempre la máxima calidad.\n\n")
	}
	if pos != "" {
		if neg == "" {
			b.WriteString("¡Muchísimas gracias! ")
		}
		b.WriteString("Nos alegra enormemente saber que disfrutaste de " + strings.ToLower(pos) + ". ")
		if neg == "" {
			b.WriteString("Trabajamos duro para ello.\n\n")
		} else {
			b.WriteString("\n\n")
		}
	}
	b.WriteString("Esperamos tener la oportunidad de recibirte de nuevo y ofrecerte una experiencia de 10.\n\nUn saludo.")
	return b.String()
}
