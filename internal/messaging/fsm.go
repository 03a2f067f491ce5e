package messaging

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type State string

const (
	StateStart                State = "start"
	StateAwaitingLanguage     State = "awaiting_language"
	StateAwaitingBusinessName State = "awaiting_business_name"
	StateAwaitingCategory     State = "awaiting_category"
	StateAwaitingUPI          State = "awaiting_upi"
	StateComplete             State = "complete"
)

var upiPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)

type choice struct {
	key  string
	name string
}

var languages = []choice{
	{"1", "English"},
	{"2", "Hindi"},
	{"3", "Tamil"},
}

var categories = []choice{
	{"1", "Fashion"},
	{"2", "Electronics"},
	{"3", "Home & Kitchen"},
	{"4", "Beauty"},
	{"5", "Food"},
	{"6", "Other"},
}

func pick(choices []choice, input string) (string, bool) {
	input = strings.TrimSpace(input)
	for _, c := range choices {
		if input == c.key || strings.EqualFold(input, c.name) {
			return c.name, true
		}
	}
	return "", false
}

func menu(choices []choice) string {
	lines := make([]string, 0, len(choices))
	for _, c := range choices {
		lines = append(lines, fmt.Sprintf("%s. %s", c.key, c.name))
	}
	return strings.Join(lines, "\n")
}

// transition accepts an input at a state, recording what it captured into the profile.
type transition struct {
	accept func(input string, p *Profile) bool
	next   State
}

var transitions = map[State]transition{
	StateStart: {
		accept: func(string, *Profile) bool { return true },
		next:   StateAwaitingLanguage,
	},
	StateAwaitingLanguage: {
		accept: func(input string, p *Profile) bool {
			lang, ok := pick(languages, input)
			p.Language = lang
			return ok
		},
		next: StateAwaitingBusinessName,
	},
	StateAwaitingBusinessName: {
		accept: func(input string, p *Profile) bool {
			name := strings.TrimSpace(input)
			if n := len([]rune(name)); n < 2 || n > 100 || onlyDigits(name) {
				return false
			}
			p.BusinessName = name
			return true
		},
		next: StateAwaitingCategory,
	},
	StateAwaitingCategory: {
		accept: func(input string, p *Profile) bool {
			category, ok := pick(categories, input)
			p.Category = category
			return ok
		},
		next: StateAwaitingUPI,
	},
	StateAwaitingUPI: {
		accept: func(input string, p *Profile) bool {
			upi := strings.TrimSpace(input)
			if !upiPattern.MatchString(upi) {
				return false
			}
			p.UPIID = strings.ToLower(upi)
			return true
		},
		next: StateComplete,
	},
	StateComplete: {
		accept: func(string, *Profile) bool { return true },
		next:   StateComplete,
	},
}

// prompts are sent on entering a state, and again when its input is not recognized.
var prompts = map[State]func(Profile) string{
	StateAwaitingLanguage: func(Profile) string {
		return "Welcome! Let's set up your store on WhatsApp.\nPlease choose your language:\n" + menu(languages)
	},
	StateAwaitingBusinessName: func(Profile) string {
		return "Great! What is the name of your business?"
	},
	StateAwaitingCategory: func(p Profile) string {
		return fmt.Sprintf("Thanks, %s! What do you sell?\n%s", p.BusinessName, menu(categories))
	},
	StateAwaitingUPI: func(Profile) string {
		return "Almost done. Please share the UPI ID where you want to receive payments (e.g. yourname@okbank)."
	},
	StateComplete: func(p Profile) string {
		return fmt.Sprintf("Your store is ready!\nBusiness: %s\nCategory: %s\nUPI: %s\nLanguage: %s",
			p.BusinessName, p.Category, p.UPIID, p.Language)
	},
}

const retryPrefix = "Sorry, I didn't get that.\n"

// step runs one input through the script and returns the next state and the reply.
// Unrecognized input leaves the state and profile unchanged.
func step(state State, profile Profile, input string) (State, Profile, string) {
	t, ok := transitions[state]
	if !ok {
		state, t = StateStart, transitions[StateStart]
	}

	candidate := profile
	if !t.accept(input, &candidate) {
		return state, profile, retryPrefix + prompts[state](profile)
	}
	return t.next, candidate, prompts[t.next](candidate)
}

func onlyDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
