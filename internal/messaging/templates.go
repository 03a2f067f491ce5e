package messaging

import (
	"regexp"
	"sort"
	"strconv"

	"gateway-emulator/internal/apperr"
)

const (
	codeInvalidParameters = "132000"
	codeTemplateNotFound  = "132001"
)

type Template struct {
	Name       string
	Category   string
	Status     string
	ParamCount int
	// Bodies maps a language code to the template body with {{n}} placeholders.
	Bodies     map[string]string
}

func (t Template) Languages() []string {
	langs := make([]string, 0, len(t.Bodies))
	for lang := range t.Bodies {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

var catalogue = map[string]Template{
	"hello_world": {
		Name:     "hello_world",
		Category: "UTILITY",
		Bodies: map[string]string{
			"en_US": "Welcome and congratulations!! This message demonstrates your ability to send a WhatsApp message notification from the Cloud API. Thank you for taking the time to test with us.",
		},
	},
	"order_confirmation": {
		Name:       "order_confirmation",
		Category:   "UTILITY",
		ParamCount: 3,
		Bodies: map[string]string{
			"en": "Hi {{1}}, your order {{2}} for ₹{{3}} has been confirmed. We will notify you when it ships.",
			"hi": "नमस्ते {{1}}, आपका ऑर्डर {{2}} (₹{{3}}) कन्फर्म हो गया है। शिप होने पर हम आपको सूचित करेंगे।",
		},
	},
	"payment_reminder": {
		Name:       "payment_reminder",
		Category:   "UTILITY",
		ParamCount: 3,
		Bodies: map[string]string{
			"en": "Hi {{1}}, a payment of ₹{{2}} is pending for your order. Pay securely here: {{3}}",
			"hi": "नमस्ते {{1}}, आपके ऑर्डर के लिए ₹{{2}} का भुगतान बाकी है। यहाँ भुगतान करें: {{3}}",
		},
	},
	"shipping_update": {
		Name:       "shipping_update",
		Category:   "UTILITY",
		ParamCount: 3,
		Bodies: map[string]string{
			"en": "Good news! Your order {{1}} has been shipped via {{2}}. Track it with AWB {{3}}.",
			"hi": "आपका ऑर्डर {{1}} {{2}} द्वारा भेज दिया गया है। AWB {{3}} से ट्रैक करें।",
		},
	},
	"onboarding_welcome": {
		Name:       "onboarding_welcome",
		Category:   "MARKETING",
		ParamCount: 1,
		Bodies: map[string]string{
			"en": "Welcome to {{1}}! Reply with any message to start setting up your store.",
			"hi": "{{1}} में आपका स्वागत है! अपना स्टोर सेट करने के लिए कोई भी संदेश भेजें।",
		},
	},
}

var placeholder = regexp.MustCompile(`\{\{(\d+)\}\}`)

// Templates lists the catalogue ordered by name.
func Templates() []Template {
	out := make([]Template, 0, len(catalogue))
	for _, t := range catalogue {
		t.Status = "APPROVED"
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func renderTemplate(name, language string, params []string) (string, error) {
	t, ok := catalogue[name]
	if !ok {
		return "", apperr.Validation("template.name", "Template name does not exist in the translation").WithCode(codeTemplateNotFound)
	}
	body, ok := t.Bodies[language]
	if !ok {
		return "", apperr.Validation("template.language", "Template name does not exist in %s", language).WithCode(codeTemplateNotFound)
	}
	if len(params) != t.ParamCount {
		return "", apperr.Validation("template.components",
			"Number of parameters does not match the expected number of params: expected %d, got %d", t.ParamCount, len(params)).
			WithCode(codeInvalidParameters)
	}

	return placeholder.ReplaceAllStringFunc(body, func(m string) string {
		n, _ := strconv.Atoi(m[2 : len(m)-2])
		return params[n-1]
	}), nil
}
